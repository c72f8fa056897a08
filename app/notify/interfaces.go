package notify

import (
	"context"

	"github.com/lysyi3m/tube-relay/app/feed"
)

// Notifier delivers one notification per new video.
// Implementations do not retry; a failed item is reported and skipped.
type Notifier interface {
	Notify(ctx context.Context, item feed.Item) error
}
