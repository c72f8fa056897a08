package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/lysyi3m/tube-relay/app/database"
	"github.com/lysyi3m/tube-relay/app/feed"
	"github.com/lysyi3m/tube-relay/app/notify"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const defaultTaskTimeout = 5 * time.Minute

type SchedulerOptions struct {
	Schedule    cron.Schedule
	FetchCount  int
	TaskTimeout time.Duration
	// OnCycle is called after every completed cycle.
	OnCycle func(CycleStats)
}

// CycleStats summarizes one pass over all channels.
type CycleStats struct {
	ID       string
	Channels int
	Notified int
	Failed   int
	Errors   int
	Duration time.Duration
}

// Scheduler runs a check of every channel right away and then on each tick
// of its schedule. Channels are processed one after another.
type Scheduler struct {
	sourceCache *feed.SourceCache
	fetcher     feed.Fetcher
	filterer    *feed.Filterer
	notifier    notify.Notifier
	store       database.CursorStore
	schedule    cron.Schedule
	fetchCount  int
	taskTimeout time.Duration
	onCycle     func(CycleStats)
	cursors     database.Cursors
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func NewScheduler(sourceCache *feed.SourceCache, fetcher feed.Fetcher, filterer *feed.Filterer,
	notifier notify.Notifier, store database.CursorStore, opts SchedulerOptions) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	taskTimeout := opts.TaskTimeout
	if taskTimeout <= 0 {
		taskTimeout = defaultTaskTimeout
	}

	return &Scheduler{
		sourceCache: sourceCache,
		fetcher:     fetcher,
		filterer:    filterer,
		notifier:    notifier,
		store:       store,
		schedule:    opts.Schedule,
		fetchCount:  opts.FetchCount,
		taskTimeout: taskTimeout,
		onCycle:     opts.OnCycle,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.RunCycle()

		for {
			next := s.schedule.Next(time.Now())
			slog.Debug("Next check scheduled", "at", next)

			timer := time.NewTimer(time.Until(next))
			select {
			case <-s.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				s.RunCycle()
			}
		}
	}()
}

// Stop cancels the wait for the next cycle and waits for a running cycle
// to wind down.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) RunCycle() CycleStats {
	started := time.Now()
	stats := CycleStats{ID: uuid.NewString()}

	sources := s.sourceCache.GetSources()
	cursors := s.loadCursors()

	slog.Debug("Check started", "cycle", stats.ID, "channels", len(sources), "cursors", len(cursors))

	for _, source := range sources {
		if s.ctx.Err() != nil {
			slog.Debug("Scheduler stopped, skipping remaining channels", "cycle", stats.ID)
			break
		}

		task := NewProcessChannelTask(source, s.fetcher, s.filterer, s.notifier, s.store, cursors, s.fetchCount)
		if err := s.executeTask(stats.ID, task); err != nil {
			stats.Errors++
		}

		stats.Channels++
		stats.Notified += task.Result.Notified
		stats.Failed += task.Result.Failed
	}

	stats.Duration = time.Since(started)
	slog.Info("Check completed", "cycle", stats.ID, "channels", stats.Channels, "notified", stats.Notified, "failed", stats.Failed, "errors", stats.Errors, "duration", stats.Duration)

	if s.onCycle != nil {
		s.onCycle(stats)
	}

	return stats
}

// loadCursors lays the cursors kept from earlier cycles over what the store
// returns, so a Save that keeps failing does not re-notify the same uploads
// every cycle.
func (s *Scheduler) loadCursors() database.Cursors {
	cursors := s.store.Load(s.ctx)
	if cursors == nil {
		cursors = database.Cursors{}
	}
	for channelID, videoID := range s.cursors {
		cursors[channelID] = videoID
	}
	s.cursors = cursors
	return cursors
}

func (s *Scheduler) executeTask(cycleID string, task TaskInterface) error {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return nil
	}

	kind := "task"
	var persistErr *database.PersistenceError
	switch {
	case errors.As(err, &persistErr):
		kind = "persistence"
	case errors.Is(err, context.Canceled):
		slog.Debug("Task cancelled", "cycle", cycleID, "channel", task.GetChannel())
		return nil
	}

	slog.Error("Task execution failed", "cycle", cycleID, "type", string(task.GetType()), "id", task.GetID(), "channel", task.GetChannel(), "kind", kind, "error", err)
	return err
}
