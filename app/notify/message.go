package notify

import (
	"context"
	"fmt"

	"github.com/lysyi3m/tube-relay/app/feed"
)

// YouTube red
const embedColor = 16711680

const DefaultDescriptionLimit = 2000

type Message struct {
	Content string  `json:"content"`
	Embeds  []Embed `json:"embeds"`
}

type Embed struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	URL         string          `json:"url"`
	Color       int             `json:"color"`
	Thumbnail   *EmbedThumbnail `json:"thumbnail,omitempty"`
	Footer      *EmbedFooter    `json:"footer,omitempty"`
}

type EmbedThumbnail struct {
	URL string `json:"url"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

// Formatter turns a video into the Discord message announcing it.
type Formatter struct {
	unshortener      *Unshortener
	descriptionLimit int
}

// NewFormatter creates a Formatter. A nil unshortener leaves links as they are.
func NewFormatter(unshortener *Unshortener, descriptionLimit int) *Formatter {
	if descriptionLimit <= 0 {
		descriptionLimit = DefaultDescriptionLimit
	}
	return &Formatter{
		unshortener:      unshortener,
		descriptionLimit: descriptionLimit,
	}
}

func (f *Formatter) Format(ctx context.Context, item feed.Item) Message {
	description := item.Description
	if f.unshortener != nil {
		description = f.unshortener.Expand(ctx, description)
	}

	embed := Embed{
		Title:       "🎬 " + item.Title,
		Description: Truncate(description, f.descriptionLimit),
		URL:         item.URL(),
		Color:       embedColor,
	}

	if item.ThumbnailURL != "" {
		embed.Thumbnail = &EmbedThumbnail{URL: item.ThumbnailURL}
	}

	if !item.PublishedAt.IsZero() {
		embed.Footer = &EmbedFooter{Text: "Published: " + item.PublishedAt.UTC().Format("2006-01-02")}
	}

	channelTitle := item.ChannelTitle
	if channelTitle == "" {
		channelTitle = string(item.ChannelID)
	}

	return Message{
		Content: fmt.Sprintf("📢 **%s** uploaded a new video!", channelTitle),
		Embeds:  []Embed{embed},
	}
}
