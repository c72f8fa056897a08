package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lysyi3m/tube-relay/app/feed"
)

var _ feed.Fetcher = (*FeedClient)(nil)

const DefaultFeedURL = "https://www.youtube.com/feeds/videos.xml"

// maxFeedSize caps the body read from the feed endpoint. A channel feed
// carries 15 entries and stays well below this.
const maxFeedSize = 4 << 20

// FeedClient fetches the public per-channel Atom feed. It needs no API key
// but only ever sees the 15 newest uploads.
type FeedClient struct {
	httpClient *http.Client
	parser     *feed.Parser
	baseURL    string
	userAgent  string
	timeout    time.Duration
}

func NewFeedClient(httpClient *http.Client, parser *feed.Parser, baseURL, userAgent string, timeout time.Duration) *FeedClient {
	if baseURL == "" {
		baseURL = DefaultFeedURL
	}
	return &FeedClient{
		httpClient: httpClient,
		parser:     parser,
		baseURL:    baseURL,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func (c *FeedClient) Fetch(ctx context.Context, channelID feed.ChannelID, count int) ([]feed.Item, error) {
	data, err := c.fetchFeed(ctx, channelID)
	if err != nil {
		return nil, &FetchError{ChannelID: channelID, Step: "atom feed", Err: err}
	}

	items, err := c.parser.Run(data)
	if err != nil {
		return nil, &FetchError{ChannelID: channelID, Step: "atom feed", Err: err}
	}

	for i := range items {
		if items[i].ChannelID == "" {
			items[i].ChannelID = channelID
		}
	}

	if count > 0 && len(items) > count {
		items = items[:count]
	}

	return items, nil
}

func (c *FeedClient) fetchFeed(ctx context.Context, channelID feed.ChannelID) ([]byte, error) {
	timeoutCtx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	feedURL := c.baseURL + "?" + url.Values{"channel_id": {string(channelID)}}.Encode()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
