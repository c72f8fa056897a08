package notify

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/tube-relay/app/feed"
)

func testItem() feed.Item {
	return feed.Item{
		VideoID:      "abc123",
		ChannelID:    "UCtest",
		ChannelTitle: "Test Creator",
		Title:        "New upload",
		Description:  "A short description",
		ThumbnailURL: "https://i.ytimg.com/vi/abc123/hqdefault.jpg",
		PublishedAt:  time.Date(2024, 3, 15, 23, 30, 0, 0, time.UTC),
	}
}

func TestFormatter_Format(t *testing.T) {
	formatter := NewFormatter(nil, 0)

	msg := formatter.Format(context.Background(), testItem())

	assert.Equal(t, "📢 **Test Creator** uploaded a new video!", msg.Content)
	require.Len(t, msg.Embeds, 1)

	embed := msg.Embeds[0]
	assert.Equal(t, "🎬 New upload", embed.Title)
	assert.Equal(t, "A short description", embed.Description)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", embed.URL)
	assert.Equal(t, 16711680, embed.Color)
	require.NotNil(t, embed.Thumbnail)
	assert.Equal(t, "https://i.ytimg.com/vi/abc123/hqdefault.jpg", embed.Thumbnail.URL)
	require.NotNil(t, embed.Footer)
	assert.Equal(t, "Published: 2024-03-15", embed.Footer.Text)
}

func TestFormatter_TruncatesDescription(t *testing.T) {
	formatter := NewFormatter(nil, 2000)
	item := testItem()
	item.Description = strings.Repeat("x", 2500)

	msg := formatter.Format(context.Background(), item)

	assert.Equal(t, strings.Repeat("x", 2000)+"...", msg.Embeds[0].Description)
}

func TestFormatter_MissingOptionalFields(t *testing.T) {
	formatter := NewFormatter(nil, 0)
	item := feed.Item{VideoID: "abc123", ChannelID: "UCtest", Title: "Untitled"}

	msg := formatter.Format(context.Background(), item)

	assert.Equal(t, "📢 **UCtest** uploaded a new video!", msg.Content)
	assert.Nil(t, msg.Embeds[0].Thumbnail)
	assert.Nil(t, msg.Embeds[0].Footer)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "thumbnail")
	assert.NotContains(t, string(data), "footer")
}

func TestFormatter_JSONShape(t *testing.T) {
	msg := NewFormatter(nil, 0).Format(context.Background(), testItem())

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	embeds, ok := decoded["embeds"].([]any)
	require.True(t, ok)
	embed := embeds[0].(map[string]any)
	assert.Equal(t, float64(16711680), embed["color"])
	assert.Equal(t, "https://i.ytimg.com/vi/abc123/hqdefault.jpg", embed["thumbnail"].(map[string]any)["url"])
	assert.Equal(t, "Published: 2024-03-15", embed["footer"].(map[string]any)["text"])
}
