package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

// maxFetchCount is the page size limit of the YouTube Data API.
const maxFetchCount = 50

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Upstream and downstream
	YouTubeAPIKey string   `long:"youtube-api-key" env:"YOUTUBE_API_KEY" description:"YouTube Data API key (required for the api fetcher and @handles)"`
	WebhookURL    string   `long:"webhook-url" env:"DISCORD_WEBHOOK_URL" description:"Discord webhook URL (required)" required:"true"`
	Channels      []string `long:"channels" env:"TARGET_CHANNELS" env-delim:"," description:"Channels to watch as @handle or UC... id, comma separated in the environment"`
	ChannelsFile  string   `long:"config" env:"CONFIG_FILE" description:"Optional YAML file listing channels with filters"`
	Fetcher       string   `long:"fetcher" env:"FETCHER" default:"api" choice:"api" choice:"feed" description:"Where recent uploads are read from"`

	// Polling
	Interval   string `long:"interval" env:"CHECK_INTERVAL" default:"20m" description:"Check interval as duration (20m), seconds (1200) or cron expression (*/20 * * * *)"`
	FetchCount int    `long:"fetch-count" env:"FETCH_COUNT" default:"5" description:"Number of recent uploads inspected per channel and check"`

	// Cursor store
	StateBackend string `long:"state-backend" env:"STATE_BACKEND" default:"file" choice:"file" choice:"sqlite" choice:"redis" description:"Where the last notified video per channel is kept"`
	StateFile    string `long:"state-file" env:"STATE_FILE" default:"channel_states.json" description:"JSON state file for the file backend"`
	StateDB      string `long:"state-db" env:"STATE_DB" default:"channel_states.db" description:"Database file for the sqlite backend"`
	RedisAddr    string `long:"redis-addr" env:"REDIS_ADDR" default:"localhost:6379" description:"Redis address for the redis backend"`
	RedisPrefix  string `long:"redis-prefix" env:"REDIS_PREFIX" default:"tube-relay:" description:"Key prefix for the redis backend"`

	// Outbound requests
	RequestTimeout   time.Duration `long:"request-timeout" env:"REQUEST_TIMEOUT" default:"15s" description:"Timeout for YouTube and Discord requests"`
	UnshortenTimeout time.Duration `long:"unshorten-timeout" env:"UNSHORTEN_TIMEOUT" default:"5s" description:"Timeout for expanding each shortened link"`
	DescriptionLimit int           `long:"description-limit" env:"DESCRIPTION_LIMIT" default:"2000" description:"Maximum description length in characters"`
	WebhookRate      float64       `long:"webhook-rate" env:"WEBHOOK_RATE" default:"2.5" description:"Maximum webhook requests per second, 0 disables pacing"`
	DryRun           bool          `long:"dry-run" env:"DRY_RUN" description:"Log notifications instead of posting them"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Seoul)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load reads the configuration from args and the environment. It returns
// nil, nil when help was requested.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, &ConfigError{Err: fmt.Errorf("failed to parse configuration: %w", err)}
	}

	schedule, err := ParseSchedule(raw.Interval)
	if err != nil {
		return nil, &ConfigError{Field: "CHECK_INTERVAL", Err: err}
	}

	cfg := &Cfg{
		YouTubeAPIKey:    strings.TrimSpace(raw.YouTubeAPIKey),
		WebhookURL:       strings.TrimSpace(raw.WebhookURL),
		Channels:         splitChannels(raw.Channels),
		ChannelsFile:     raw.ChannelsFile,
		Fetcher:          raw.Fetcher,
		ScheduleSpec:     raw.Interval,
		Schedule:         schedule,
		FetchCount:       raw.FetchCount,
		StateBackend:     raw.StateBackend,
		StateFile:        raw.StateFile,
		StateDB:          raw.StateDB,
		RedisAddr:        raw.RedisAddr,
		RedisPrefix:      raw.RedisPrefix,
		RequestTimeout:   raw.RequestTimeout,
		UnshortenTimeout: raw.UnshortenTimeout,
		DescriptionLimit: raw.DescriptionLimit,
		WebhookRate:      raw.WebhookRate,
		DryRun:           raw.DryRun,
		UserAgent:        cmp.Or(raw.UserAgent, "tube-relay/"+GetVersion()),
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	u, err := url.Parse(cfg.WebhookURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigError{Field: "DISCORD_WEBHOOK_URL", Err: fmt.Errorf("must be an http(s) URL with a host")}
	}

	if len(cfg.Channels) == 0 && cfg.ChannelsFile == "" {
		return &ConfigError{Field: "TARGET_CHANNELS", Err: fmt.Errorf("at least one channel is required")}
	}

	if cfg.NeedsAPIKey() && cfg.YouTubeAPIKey == "" {
		return &ConfigError{Field: "YOUTUBE_API_KEY", Err: fmt.Errorf("required by the %s fetcher or @handle channels", cfg.Fetcher)}
	}

	if cfg.FetchCount < 1 || cfg.FetchCount > maxFetchCount {
		return &ConfigError{Field: "FETCH_COUNT", Err: fmt.Errorf("must be between 1 and %d, got %d", maxFetchCount, cfg.FetchCount)}
	}

	positive := map[string]int64{
		"REQUEST_TIMEOUT":   int64(cfg.RequestTimeout),
		"UNSHORTEN_TIMEOUT": int64(cfg.UnshortenTimeout),
		"DESCRIPTION_LIMIT": int64(cfg.DescriptionLimit),
	}
	for field, value := range positive {
		if value <= 0 {
			return &ConfigError{Field: field, Err: fmt.Errorf("must be positive")}
		}
	}

	if cfg.WebhookRate < 0 {
		return &ConfigError{Field: "WEBHOOK_RATE", Err: fmt.Errorf("must not be negative")}
	}

	return nil
}

// splitChannels flattens comma separated values so flags and the
// environment accept the same format.
func splitChannels(values []string) []string {
	channels := make([]string, 0, len(values))
	for _, value := range values {
		for _, ch := range strings.Split(value, ",") {
			if ch = strings.TrimSpace(ch); ch != "" {
				channels = append(channels, ch)
			}
		}
	}
	return channels
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			slog.Debug("Timezone configured", "timezone", timezone)
		}
	}
	return nil
}
