package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/lysyi3m/tube-relay/app/feed"
)

var _ Notifier = (*LogNotifier)(nil)

// LogNotifier writes the message that would be posted to the log instead
// of delivering it. Used for dry runs.
type LogNotifier struct {
	formatter *Formatter
}

func NewLogNotifier(formatter *Formatter) *LogNotifier {
	return &LogNotifier{formatter: formatter}
}

func (n *LogNotifier) Notify(ctx context.Context, item feed.Item) error {
	message := n.formatter.Format(ctx, item)

	payload, err := json.Marshal(message)
	if err != nil {
		return &DeliveryError{VideoID: item.VideoID, Err: err}
	}

	slog.Info("Dry run, notification not sent", "channel", item.ChannelID, "video", item.VideoID, "payload", string(payload))
	return nil
}
