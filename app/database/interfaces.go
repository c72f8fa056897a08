package database

import (
	"context"

	"github.com/lysyi3m/tube-relay/app/feed"
)

// Cursors maps every watched channel to the last video notified for it.
// A missing key means the channel was never checked.
type Cursors map[feed.ChannelID]feed.VideoID

func (c Cursors) Clone() Cursors {
	clone := make(Cursors, len(c))
	for k, v := range c {
		clone[k] = v
	}
	return clone
}

// CursorStore persists Cursors between runs.
//
// Load never fails: a store that does not exist yet yields an empty
// mapping, and an unreadable one is logged and treated the same way.
// Save replaces the whole mapping atomically.
type CursorStore interface {
	Load(ctx context.Context) Cursors
	Save(ctx context.Context, cursors Cursors) error
	Close() error
}
