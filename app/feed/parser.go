package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

const thumbnailURLFormat = "https://i.ytimg.com/vi/%s/hqdefault.jpg"

// Parser reads the per-channel Atom feed YouTube publishes at
// /feeds/videos.xml. Video metadata lives in the yt: and media: extensions.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run returns the feed entries newest first.
func (p *Parser) Run(data []byte) ([]Item, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		item, ok := p.normalizeItem(entry, parsed.Title)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	slices.SortStableFunc(items, func(a, b Item) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})

	return items, nil
}

func (p *Parser) normalizeItem(entry *gofeed.Item, feedTitle string) (Item, bool) {
	videoID := extensionValue(entry.Extensions, "yt", "videoId")
	if videoID == "" {
		// Older feeds only carry the id inside the entry id, "yt:video:<id>".
		videoID = strings.TrimPrefix(entry.GUID, "yt:video:")
	}
	if videoID == "" {
		return Item{}, false
	}

	normalized := Item{
		VideoID:     VideoID(videoID),
		ChannelID:   ChannelID(extensionValue(entry.Extensions, "yt", "channelId")),
		Title:       entry.Title,
		Description: cmp.Or(mediaGroupValue(entry.Extensions, "description"), entry.Description),
	}

	if len(entry.Authors) > 0 && entry.Authors[0] != nil {
		normalized.ChannelTitle = entry.Authors[0].Name
	}
	normalized.ChannelTitle = cmp.Or(normalized.ChannelTitle, feedTitle)

	if entry.PublishedParsed != nil {
		normalized.PublishedAt = *entry.PublishedParsed
	}

	normalized.ThumbnailURL = cmp.Or(
		mediaGroupAttr(entry.Extensions, "thumbnail", "url"),
		fmt.Sprintf(thumbnailURLFormat, videoID),
	)

	return normalized, true
}

func extensionValue(extensions ext.Extensions, namespace, name string) string {
	values := extensions[namespace][name]
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0].Value)
}

func mediaGroup(extensions ext.Extensions) *ext.Extension {
	groups := extensions["media"]["group"]
	if len(groups) == 0 {
		return nil
	}
	return &groups[0]
}

func mediaGroupValue(extensions ext.Extensions, name string) string {
	group := mediaGroup(extensions)
	if group == nil || len(group.Children[name]) == 0 {
		return ""
	}
	return group.Children[name][0].Value
}

func mediaGroupAttr(extensions ext.Extensions, name, attr string) string {
	group := mediaGroup(extensions)
	if group == nil || len(group.Children[name]) == 0 {
		return ""
	}
	return group.Children[name][0].Attrs[attr]
}
