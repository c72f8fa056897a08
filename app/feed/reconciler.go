package feed

import "slices"

// Reconciliation is the outcome of comparing a fetched window with the
// stored cursor of a channel.
type Reconciliation struct {
	// New holds the items to notify, oldest first.
	New []Item
	// Cursor is the cursor to persist after the items are handled.
	Cursor VideoID
	// FirstRun is set when there was no cursor yet. Nothing is notified.
	FirstRun bool
	// Gap is set when the cursor fell out of the window, meaning more
	// uploads may have happened than the window can show.
	Gap bool
}

// Advanced reports whether the cursor moved away from prev.
func (r Reconciliation) Advanced(prev VideoID) bool {
	return r.Cursor != prev
}

// Reconcile finds the items of window (newest first) that were published
// after cursor. An empty cursor means the channel was never checked.
//
// The result is idempotent: reconciling the same window again with the
// returned cursor yields no new items.
func Reconcile(window []Item, cursor VideoID) Reconciliation {
	if len(window) == 0 {
		return Reconciliation{Cursor: cursor}
	}

	latest := window[0].VideoID

	if cursor == "" {
		return Reconciliation{Cursor: latest, FirstRun: true}
	}

	k := slices.IndexFunc(window, func(item Item) bool {
		return item.VideoID == cursor
	})

	gap := k < 0
	if gap {
		k = len(window)
	}

	fresh := make([]Item, k)
	copy(fresh, window[:k])
	slices.Reverse(fresh)

	return Reconciliation{
		New:    fresh,
		Cursor: latest,
		Gap:    gap,
	}
}
