package cfg

import (
	"time"

	"github.com/robfig/cron/v3"
)

const (
	FetcherAPI  = "api"
	FetcherFeed = "feed"
)

type Cfg struct {
	// Upstream and downstream
	YouTubeAPIKey string
	WebhookURL    string
	Channels      []string
	ChannelsFile  string
	Fetcher       string

	// Polling
	ScheduleSpec string
	Schedule     cron.Schedule
	FetchCount   int

	// Cursor store
	StateBackend string
	StateFile    string
	StateDB      string
	RedisAddr    string
	RedisPrefix  string

	// Outbound requests
	RequestTimeout   time.Duration
	UnshortenTimeout time.Duration
	DescriptionLimit int
	WebhookRate      float64
	DryRun           bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// NeedsAPIKey reports whether the configuration calls the YouTube Data API,
// either to fetch uploads or to resolve @handles in TARGET_CHANNELS. Handles
// in the channel file are checked by feed.SourceCache once it is loaded.
func (c *Cfg) NeedsAPIKey() bool {
	if c.Fetcher == FetcherAPI {
		return true
	}
	for _, ch := range c.Channels {
		if len(ch) > 0 && ch[0] == '@' {
			return true
		}
	}
	return false
}
