package feed

import (
	"context"
	"time"
)

// Video processing types

type ChannelID string

type VideoID string

const WatchURLPrefix = "https://www.youtube.com/watch?v="

type Item struct {
	VideoID      VideoID
	ChannelID    ChannelID
	ChannelTitle string
	Title        string
	Description  string
	ThumbnailURL string
	PublishedAt  time.Time

	IsFiltered   bool
	FilterReason string
}

func (i Item) URL() string {
	return WatchURLPrefix + string(i.VideoID)
}

// Fetcher returns the most recent uploads of a channel, newest first.
type Fetcher interface {
	Fetch(ctx context.Context, channelID ChannelID, count int) ([]Item, error)
}

// Source configuration types

type Source struct {
	Identifier string
	ChannelID  ChannelID
	Filters    []Filter
}

type SourceConfig struct {
	ID      string   `yaml:"id"`
	Filters []Filter `yaml:"filters"`
}

type SourcesFile struct {
	Channels []SourceConfig `yaml:"channels"`
}

type Filter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
