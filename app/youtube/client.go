package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/lysyi3m/tube-relay/app/feed"
)

var (
	_ feed.Fetcher         = (*Client)(nil)
	_ feed.ChannelSearcher = (*Client)(nil)
)

// MaxPageSize is the largest page the Data API returns for list calls.
const MaxPageSize = 50

// Client talks to the YouTube Data API v3 with an API key.
type Client struct {
	service *yt.Service
	timeout time.Duration
}

func NewClient(ctx context.Context, apiKey string, timeout time.Duration, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)

	service, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	return &Client{
		service: service,
		timeout: timeout,
	}, nil
}

func (c *Client) SearchChannel(ctx context.Context, query string) ([]feed.ChannelID, error) {
	callCtx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("channel").
		MaxResults(1).
		Context(callCtx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("channel search failed: %w", err)
	}

	ids := make([]feed.ChannelID, 0, len(resp.Items))
	for _, result := range resp.Items {
		if result.Id != nil && result.Id.ChannelId != "" {
			ids = append(ids, feed.ChannelID(result.Id.ChannelId))
		} else if result.Snippet != nil && result.Snippet.ChannelId != "" {
			ids = append(ids, feed.ChannelID(result.Snippet.ChannelId))
		}
	}

	return ids, nil
}

// Fetch lists the newest uploads of channelID through its uploads playlist.
func (c *Client) Fetch(ctx context.Context, channelID feed.ChannelID, count int) ([]feed.Item, error) {
	playlistID, err := c.uploadsPlaylist(ctx, channelID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.service.PlaylistItems.List([]string{"snippet"}).
		PlaylistId(playlistID).
		MaxResults(int64(min(max(count, 1), MaxPageSize))).
		Context(callCtx).
		Do()
	if err != nil {
		return nil, &FetchError{ChannelID: channelID, Step: "playlist items", Err: err}
	}

	items := make([]feed.Item, 0, len(resp.Items))
	for _, playlistItem := range resp.Items {
		item, ok := convertPlaylistItem(channelID, playlistItem)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	slog.Debug("Uploads fetched", "channel", channelID, "playlist", playlistID, "count", len(items))

	return items, nil
}

func (c *Client) uploadsPlaylist(ctx context.Context, channelID feed.ChannelID) (string, error) {
	callCtx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.service.Channels.List([]string{"contentDetails"}).
		Id(string(channelID)).
		Context(callCtx).
		Do()
	if err != nil {
		return "", &FetchError{ChannelID: channelID, Step: "channel details", Err: err}
	}

	if len(resp.Items) == 0 {
		return "", &FetchError{ChannelID: channelID, Step: "channel details", Err: fmt.Errorf("channel not found")}
	}

	details := resp.Items[0].ContentDetails
	if details == nil || details.RelatedPlaylists == nil || details.RelatedPlaylists.Uploads == "" {
		return "", &FetchError{ChannelID: channelID, Step: "channel details", Err: fmt.Errorf("channel has no uploads playlist")}
	}

	return details.RelatedPlaylists.Uploads, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func convertPlaylistItem(channelID feed.ChannelID, playlistItem *yt.PlaylistItem) (feed.Item, bool) {
	snippet := playlistItem.Snippet
	if snippet == nil || snippet.ResourceId == nil || snippet.ResourceId.VideoId == "" {
		return feed.Item{}, false
	}

	item := feed.Item{
		VideoID:      feed.VideoID(snippet.ResourceId.VideoId),
		ChannelID:    channelID,
		ChannelTitle: snippet.ChannelTitle,
		Title:        snippet.Title,
		Description:  snippet.Description,
		ThumbnailURL: bestThumbnail(snippet.Thumbnails),
	}

	if published, err := time.Parse(time.RFC3339, snippet.PublishedAt); err == nil {
		item.PublishedAt = published
	}

	return item, true
}

func bestThumbnail(thumbnails *yt.ThumbnailDetails) string {
	if thumbnails == nil {
		return ""
	}
	for _, thumbnail := range []*yt.Thumbnail{thumbnails.High, thumbnails.Medium, thumbnails.Default} {
		if thumbnail != nil && thumbnail.Url != "" {
			return thumbnail.Url
		}
	}
	return ""
}
