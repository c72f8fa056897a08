package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/lysyi3m/tube-relay/app/cfg"
	"github.com/lysyi3m/tube-relay/app/database"
	"github.com/lysyi3m/tube-relay/app/feed"
	"github.com/lysyi3m/tube-relay/app/notify"
	"github.com/lysyi3m/tube-relay/app/tasks"
	"github.com/lysyi3m/tube-relay/app/youtube"
)

func main() {
	os.Exit(run())
}

func run() int {
	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}
	if appCfg == nil {
		// Help was shown
		return 0
	}

	setupLogging(appCfg.Debug)

	slog.Info("Starting tube-relay", "version", appCfg.Version, "fetcher", appCfg.Fetcher, "state_backend", appCfg.StateBackend, "schedule", appCfg.ScheduleSpec, "dry_run", appCfg.DryRun)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.Open(ctx, database.Options{
		Backend:     appCfg.StateBackend,
		FilePath:    appCfg.StateFile,
		DBPath:      appCfg.StateDB,
		RedisAddr:   appCfg.RedisAddr,
		RedisPrefix: appCfg.RedisPrefix,
	})
	if err != nil {
		slog.Error("Failed to open cursor store", "backend", appCfg.StateBackend, "error", err)
		return 1
	}
	defer store.Close()

	httpClient := &http.Client{Timeout: appCfg.RequestTimeout}

	var apiClient *youtube.Client
	if appCfg.YouTubeAPIKey != "" {
		apiClient, err = youtube.NewClient(ctx, appCfg.YouTubeAPIKey, appCfg.RequestTimeout)
		if err != nil {
			slog.Error("Failed to create YouTube client", "error", err)
			return 1
		}
	}

	var searcher feed.ChannelSearcher
	if apiClient != nil {
		searcher = apiClient
	}

	var fetcher feed.Fetcher
	switch appCfg.Fetcher {
	case cfg.FetcherFeed:
		fetcher = youtube.NewFeedClient(httpClient, feed.NewParser(), youtube.DefaultFeedURL, appCfg.UserAgent, appCfg.RequestTimeout)
	default:
		fetcher = apiClient
	}

	sourceCache := feed.NewSourceCache(appCfg.Channels, appCfg.ChannelsFile, feed.NewResolver(searcher))
	if err := sourceCache.Run(ctx); err != nil {
		field := "CONFIG_FILE"
		if errors.Is(err, feed.ErrSearchUnavailable) {
			field = "YOUTUBE_API_KEY"
		}
		slog.Error("Failed to load channels", "error", &cfg.ConfigError{Field: field, Err: err})
		return 1
	}
	if sourceCache.GetSourceCount() == 0 {
		slog.Error("No channel could be resolved, nothing to watch")
		return 1
	}
	slog.Info("Channels resolved", "count", sourceCache.GetSourceCount())

	unshortener := notify.NewUnshortener(&http.Client{}, appCfg.UserAgent, appCfg.UnshortenTimeout)
	formatter := notify.NewFormatter(unshortener, appCfg.DescriptionLimit)

	var notifier notify.Notifier
	if appCfg.DryRun {
		notifier = notify.NewLogNotifier(formatter)
	} else {
		sender, err := notify.NewWebhookSender(notify.WebhookSenderConfig{
			URL:        appCfg.WebhookURL,
			Timeout:    appCfg.RequestTimeout,
			UserAgent:  appCfg.UserAgent,
			RatePerSec: appCfg.WebhookRate,
		}, formatter)
		if err != nil {
			slog.Error("Failed to create webhook sender", "error", err)
			return 1
		}
		slog.Info("Webhook configured", "url", notify.RedactURL(appCfg.WebhookURL))
		notifier = sender
	}

	scheduler := tasks.NewScheduler(sourceCache, fetcher, feed.NewFilterer(), notifier, store, tasks.SchedulerOptions{
		Schedule:   appCfg.Schedule,
		FetchCount: appCfg.FetchCount,
		OnCycle: func(stats tasks.CycleStats) {
			sdNotify(fmt.Sprintf("STATUS=Last check %s: %d channels, %d notified, %d failed",
				time.Now().Format(time.RFC3339), stats.Channels, stats.Notified, stats.Failed))
		},
	})
	scheduler.Start()

	sdNotify(daemon.SdNotifyReady)
	go runWatchdog(ctx)

	slog.Info("tube-relay started, press Ctrl+C to stop")

	<-ctx.Done()

	slog.Info("Shutting down gracefully...")
	sdNotify(daemon.SdNotifyStopping)
	scheduler.Stop()
	slog.Info("Shutdown complete")

	return 0
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// sdNotify is a no-op outside of systemd.
func sdNotify(state string) {
	if _, err := daemon.SdNotify(false, state); err != nil {
		slog.Debug("systemd notify failed", "state", state, "error", err)
	}
}

func runWatchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sdNotify(daemon.SdNotifyWatchdog)
		}
	}
}
