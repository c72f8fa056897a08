package notify

import (
	"fmt"

	"github.com/lysyi3m/tube-relay/app/feed"
)

// DeliveryError is returned when the webhook did not accept a notification.
// StatusCode is zero when no response was received.
type DeliveryError struct {
	VideoID    feed.VideoID
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("delivery of %s failed with HTTP %d", e.VideoID, e.StatusCode)
	}
	return fmt.Sprintf("delivery of %s failed: %v", e.VideoID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
