package youtube

import (
	"fmt"

	"github.com/lysyi3m/tube-relay/app/feed"
)

// FetchError reports a failed attempt to list the recent uploads of a
// channel. Step names the request that failed.
type FetchError struct {
	ChannelID feed.ChannelID
	Step      string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s for %s: %v", e.Step, e.ChannelID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
