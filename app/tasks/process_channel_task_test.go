package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/tube-relay/app/database"
	"github.com/lysyi3m/tube-relay/app/feed"
)

func newTestTask(source feed.Source, fetcher *MockFetcher, notifier *MockNotifier, store *MockStore) *ProcessChannelTask {
	cursors := store.Load(context.Background())
	task := NewProcessChannelTask(source, fetcher, feed.NewFilterer(), notifier, store, cursors, 5)
	task.Start()
	return task
}

func TestProcessChannelTask_NotifiesNewUploadsOldestFirst(t *testing.T) {
	fetcher := &MockFetcher{windows: map[feed.ChannelID][]feed.Item{
		"UCA": uploads("UCA", "v103", "v102", "v101", "v100"),
	}}
	notifier := &MockNotifier{}
	store := &MockStore{cursors: database.Cursors{"UCA": "v100"}}

	task := newTestTask(feed.Source{Identifier: "@a", ChannelID: "UCA"}, fetcher, notifier, store)
	require.NoError(t, task.Execute(context.Background()))

	assert.Equal(t, []feed.VideoID{"v101", "v102", "v103"}, notifier.Delivered())
	assert.Equal(t, database.Cursors{"UCA": "v103"}, store.cursors)
	assert.Equal(t, 1, store.saves)
	assert.True(t, task.Result.Advanced)
	assert.Equal(t, 3, task.Result.Notified)
}

func TestProcessChannelTask_FirstRunRecordsCursorOnly(t *testing.T) {
	fetcher := &MockFetcher{windows: map[feed.ChannelID][]feed.Item{
		"UCA": uploads("UCA", "C", "B", "A"),
	}}
	notifier := &MockNotifier{}
	store := &MockStore{cursors: database.Cursors{}}

	task := newTestTask(feed.Source{Identifier: "UCA", ChannelID: "UCA"}, fetcher, notifier, store)
	require.NoError(t, task.Execute(context.Background()))

	assert.Empty(t, notifier.Delivered())
	assert.Equal(t, database.Cursors{"UCA": "C"}, store.cursors)
}

func TestProcessChannelTask_NoChangeSkipsSave(t *testing.T) {
	fetcher := &MockFetcher{windows: map[feed.ChannelID][]feed.Item{
		"UCA": uploads("UCA", "C", "B", "A"),
	}}
	notifier := &MockNotifier{}
	store := &MockStore{cursors: database.Cursors{"UCA": "C"}}

	task := newTestTask(feed.Source{Identifier: "UCA", ChannelID: "UCA"}, fetcher, notifier, store)
	require.NoError(t, task.Execute(context.Background()))

	assert.Empty(t, notifier.Delivered())
	assert.Zero(t, store.saves)
	assert.False(t, task.Result.Advanced)
}

func TestProcessChannelTask_FetchErrorKeepsCursor(t *testing.T) {
	fetcher := &MockFetcher{errs: map[feed.ChannelID]error{"UCA": errQuota}}
	notifier := &MockNotifier{}
	store := &MockStore{cursors: database.Cursors{"UCA": "v100"}}

	task := newTestTask(feed.Source{Identifier: "UCA", ChannelID: "UCA"}, fetcher, notifier, store)
	require.NoError(t, task.Execute(context.Background()))

	assert.True(t, task.Result.FetchFail)
	assert.Empty(t, notifier.Delivered())
	assert.Zero(t, store.saves)
	assert.Equal(t, database.Cursors{"UCA": "v100"}, store.cursors)
}

func TestProcessChannelTask_GapNotifiesWholeWindow(t *testing.T) {
	fetcher := &MockFetcher{windows: map[feed.ChannelID][]feed.Item{
		"UCA": uploads("UCA", "Z", "Y", "X"),
	}}
	notifier := &MockNotifier{}
	store := &MockStore{cursors: database.Cursors{"UCA": "A"}}

	task := newTestTask(feed.Source{Identifier: "UCA", ChannelID: "UCA"}, fetcher, notifier, store)
	require.NoError(t, task.Execute(context.Background()))

	assert.Equal(t, []feed.VideoID{"X", "Y", "Z"}, notifier.Delivered())
	assert.Equal(t, feed.VideoID("Z"), store.cursors["UCA"])
}

func TestProcessChannelTask_DeliveryFailureStillAdvances(t *testing.T) {
	fetcher := &MockFetcher{windows: map[feed.ChannelID][]feed.Item{
		"UCA": uploads("UCA", "v103", "v102", "v101", "v100"),
	}}
	notifier := &MockNotifier{failFor: map[feed.VideoID]bool{"v102": true}}
	store := &MockStore{cursors: database.Cursors{"UCA": "v100"}}

	task := newTestTask(feed.Source{Identifier: "UCA", ChannelID: "UCA"}, fetcher, notifier, store)
	require.NoError(t, task.Execute(context.Background()))

	assert.Equal(t, []feed.VideoID{"v101", "v103"}, notifier.Delivered())
	assert.Equal(t, 1, task.Result.Failed)
	assert.Equal(t, feed.VideoID("v103"), store.cursors["UCA"])
}

func TestProcessChannelTask_FilteredUploadsAdvanceCursor(t *testing.T) {
	window := uploads("UCA", "v103", "v102", "v101", "v100")
	window[1].Title = "Quick clip #shorts"

	fetcher := &MockFetcher{windows: map[feed.ChannelID][]feed.Item{"UCA": window}}
	notifier := &MockNotifier{}
	store := &MockStore{cursors: database.Cursors{"UCA": "v100"}}

	source := feed.Source{
		Identifier: "UCA",
		ChannelID:  "UCA",
		Filters:    []feed.Filter{{Field: "title", Excludes: []string{"#shorts"}}},
	}

	task := newTestTask(source, fetcher, notifier, store)
	require.NoError(t, task.Execute(context.Background()))

	assert.Equal(t, []feed.VideoID{"v101", "v103"}, notifier.Delivered())
	assert.Equal(t, 1, task.Result.Filtered)
	assert.Equal(t, feed.VideoID("v103"), store.cursors["UCA"])
}

func TestProcessChannelTask_PersistenceError(t *testing.T) {
	fetcher := &MockFetcher{windows: map[feed.ChannelID][]feed.Item{
		"UCA": uploads("UCA", "v101", "v100"),
	}}
	notifier := &MockNotifier{}
	store := &MockStore{cursors: database.Cursors{"UCA": "v100"}, saveErr: errQuota}

	task := newTestTask(feed.Source{Identifier: "UCA", ChannelID: "UCA"}, fetcher, notifier, store)
	err := task.Execute(context.Background())

	var persistErr *database.PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, []feed.VideoID{"v101"}, notifier.Delivered())
}

func TestProcessChannelTask_InterruptedKeepsLastHandledItem(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &MockFetcher{windows: map[feed.ChannelID][]feed.Item{
		"UCA": uploads("UCA", "v103", "v102", "v101", "v100"),
	}}
	notifier := &MockNotifier{afterEach: func(feed.Item) { cancel() }}
	store := &MockStore{cursors: database.Cursors{"UCA": "v100"}}

	task := newTestTask(feed.Source{Identifier: "UCA", ChannelID: "UCA"}, fetcher, notifier, store)
	require.NoError(t, task.Execute(ctx))

	assert.Equal(t, []feed.VideoID{"v101"}, notifier.Delivered())
	assert.Equal(t, feed.VideoID("v101"), store.cursors["UCA"])

	// The next run picks up the remaining uploads
	notifier.afterEach = nil
	next := newTestTask(feed.Source{Identifier: "UCA", ChannelID: "UCA"}, fetcher, notifier, store)
	require.NoError(t, next.Execute(context.Background()))

	assert.Equal(t, []feed.VideoID{"v101", "v102", "v103"}, notifier.Delivered())
	assert.Equal(t, feed.VideoID("v103"), store.cursors["UCA"])
}

func TestProcessChannelTask_InterruptedDeliveryIsRetriedNextRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &MockFetcher{windows: map[feed.ChannelID][]feed.Item{
		"UCA": uploads("UCA", "v103", "v102", "v101", "v100"),
	}}
	notifier := &MockNotifier{inFlight: func(item feed.Item) {
		if item.VideoID == "v102" {
			cancel()
		}
	}}
	store := &MockStore{cursors: database.Cursors{"UCA": "v100"}}

	task := newTestTask(feed.Source{Identifier: "UCA", ChannelID: "UCA"}, fetcher, notifier, store)
	require.NoError(t, task.Execute(ctx))

	assert.Equal(t, []feed.VideoID{"v101"}, notifier.Delivered())
	assert.Equal(t, feed.VideoID("v101"), store.cursors["UCA"])
	assert.Equal(t, 0, task.Result.Failed)

	notifier.inFlight = nil
	next := newTestTask(feed.Source{Identifier: "UCA", ChannelID: "UCA"}, fetcher, notifier, store)
	require.NoError(t, next.Execute(context.Background()))

	assert.Equal(t, []feed.VideoID{"v101", "v102", "v103"}, notifier.Delivered())
	assert.Equal(t, feed.VideoID("v103"), store.cursors["UCA"])
}

func TestProcessChannelTask_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &MockFetcher{}
	task := newTestTask(feed.Source{Identifier: "UCA", ChannelID: "UCA"}, fetcher, &MockNotifier{}, &MockStore{})

	assert.ErrorIs(t, task.Execute(ctx), context.Canceled)
	assert.Empty(t, fetcher.calls)
}
