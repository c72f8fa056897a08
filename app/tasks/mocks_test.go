package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lysyi3m/tube-relay/app/database"
	"github.com/lysyi3m/tube-relay/app/feed"
	"github.com/lysyi3m/tube-relay/app/notify"
)

// MockFetcher serves fixed windows per channel
type MockFetcher struct {
	windows map[feed.ChannelID][]feed.Item
	errs    map[feed.ChannelID]error
	calls   []feed.ChannelID
}

func (m *MockFetcher) Fetch(ctx context.Context, channelID feed.ChannelID, count int) ([]feed.Item, error) {
	m.calls = append(m.calls, channelID)
	if err := m.errs[channelID]; err != nil {
		return nil, err
	}
	window := m.windows[channelID]
	if len(window) > count {
		window = window[:count]
	}
	return window, nil
}

// MockNotifier records delivered video ids
type MockNotifier struct {
	mu        sync.Mutex
	delivered []feed.VideoID
	failFor   map[feed.VideoID]bool
	inFlight  func(feed.Item)
	afterEach func(feed.Item)
}

func (m *MockNotifier) Notify(ctx context.Context, item feed.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.afterEach != nil {
		defer m.afterEach(item)
	}
	if m.inFlight != nil {
		m.inFlight(item)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if m.failFor[item.VideoID] {
		return &notify.DeliveryError{VideoID: item.VideoID, StatusCode: 500}
	}
	m.delivered = append(m.delivered, item.VideoID)
	return nil
}

func (m *MockNotifier) Delivered() []feed.VideoID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]feed.VideoID{}, m.delivered...)
}

// MockStore keeps cursors in memory
type MockStore struct {
	mu      sync.Mutex
	cursors database.Cursors
	saves   int
	saveErr error
}

func (m *MockStore) Load(ctx context.Context) database.Cursors {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursors.Clone()
}

func (m *MockStore) Save(ctx context.Context, cursors database.Cursors) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return &database.PersistenceError{Backend: "mock", Err: m.saveErr}
	}
	m.cursors = cursors.Clone()
	return nil
}

func (m *MockStore) Close() error {
	return nil
}

var errQuota = errors.New("quota exceeded")

func uploads(channelID feed.ChannelID, ids ...string) []feed.Item {
	items := make([]feed.Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, feed.Item{
			VideoID:      feed.VideoID(id),
			ChannelID:    channelID,
			ChannelTitle: "Creator " + string(channelID),
			Title:        "Video " + id,
		})
	}
	return items
}
