package tasks

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lysyi3m/tube-relay/app/database"
	"github.com/lysyi3m/tube-relay/app/feed"
	"github.com/lysyi3m/tube-relay/app/notify"
)

// ChannelResult summarizes one ProcessChannelTask run.
type ChannelResult struct {
	Fetched   int
	New       int
	Notified  int
	Filtered  int
	Failed    int
	Advanced  bool
	FetchFail bool
}

// ProcessChannelTask checks one channel: it fetches the recent uploads,
// notifies the ones after the stored cursor oldest first, and persists the
// new cursor. cursors is shared across the tasks of a cycle.
type ProcessChannelTask struct {
	Task
	Source     feed.Source
	fetcher    feed.Fetcher
	filterer   *feed.Filterer
	notifier   notify.Notifier
	store      database.CursorStore
	cursors    database.Cursors
	fetchCount int

	Result ChannelResult
}

func NewProcessChannelTask(source feed.Source, fetcher feed.Fetcher, filterer *feed.Filterer, notifier notify.Notifier,
	store database.CursorStore, cursors database.Cursors, fetchCount int) *ProcessChannelTask {
	return &ProcessChannelTask{
		Task:       NewTask(TaskTypeProcessChannel, source.Identifier),
		Source:     source,
		fetcher:    fetcher,
		filterer:   filterer,
		notifier:   notifier,
		store:      store,
		cursors:    cursors,
		fetchCount: fetchCount,
	}
}

func (t *ProcessChannelTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	channelID := t.Source.ChannelID
	previous := t.cursors[channelID]

	window, err := t.fetcher.Fetch(ctx, channelID, t.fetchCount)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Error("Failed to fetch recent uploads, skipping channel", "channel", t.Channel, "channel_id", channelID, "kind", "fetch", "error", err)
		t.Result.FetchFail = true
		window = nil
	}
	t.Result.Fetched = len(window)

	result := feed.Reconcile(window, previous)

	switch {
	case result.FirstRun:
		slog.Info("First check of channel, recording latest upload without notifying", "channel", t.Channel, "video", result.Cursor)
	case result.Gap:
		slog.Warn("Stored cursor not in recent uploads, notifying the whole window", "channel", t.Channel, "cursor", previous, "window", len(window))
	}

	fresh := t.filterer.Run(result.New, t.Source.Filters)
	t.Result.New = len(fresh)

	cursor := result.Cursor
	for i, item := range fresh {
		if ctx.Err() != nil {
			cursor = t.interrupted(fresh, i, previous)
			break
		}

		if item.IsFiltered {
			t.Result.Filtered++
			slog.Debug("Upload filtered", "channel", t.Channel, "video", item.VideoID, "reason", item.FilterReason)
			continue
		}

		if err := t.notifier.Notify(ctx, item); err != nil {
			if ctx.Err() != nil {
				// Cut off by shutdown, not rejected. Leave it to the next run.
				cursor = t.interrupted(fresh, i, previous)
				break
			}

			t.Result.Failed++
			var deliveryErr *notify.DeliveryError
			kind := "notify"
			if errors.As(err, &deliveryErr) {
				kind = "delivery"
			}
			slog.Error("Failed to deliver notification", "channel", t.Channel, "video", item.VideoID, "kind", kind, "error", err)
			continue
		}

		t.Result.Notified++
		slog.Info("Notification sent", "channel", t.Channel, "video", item.VideoID, "title", item.Title)
	}

	if cursor == previous {
		t.logCompleted()
		return nil
	}

	t.cursors[channelID] = cursor
	t.Result.Advanced = true

	// The cursor must be stored even when shutdown interrupted the check.
	if err := t.store.Save(context.WithoutCancel(ctx), t.cursors); err != nil {
		return err
	}

	t.logCompleted()
	return nil
}

// interrupted returns the cursor to keep when the check stops before
// fresh[next]: the last handled item, or the previous cursor if none was.
func (t *ProcessChannelTask) interrupted(fresh []feed.Item, next int, previous feed.VideoID) feed.VideoID {
	slog.Warn("Check interrupted, remaining uploads deferred", "channel", t.Channel, "remaining", len(fresh)-next)
	if next == 0 {
		return previous
	}
	return fresh[next-1].VideoID
}

func (t *ProcessChannelTask) logCompleted() {
	slog.Info("Task completed",
		"type", string(t.Type),
		"channel", t.Channel,
		"duration", t.GetDuration(),
		"fetched", t.Result.Fetched,
		"new", t.Result.New,
		"notified", t.Result.Notified,
		"filtered", t.Result.Filtered,
		"failed", t.Result.Failed)
}
