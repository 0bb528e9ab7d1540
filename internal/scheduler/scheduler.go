// Package scheduler runs the periodic background jobs: refreshing calendar
// feeds and capturing the timeline preview.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"ganttcal/internal/aggregate"
	"ganttcal/internal/capture"
	"ganttcal/internal/config"
	"ganttcal/internal/ics"
	appLog "ganttcal/internal/log"
	"ganttcal/internal/store"
	"ganttcal/internal/timeline"
)

// Refresher reloads calendar feeds. *web.Server implements it.
type Refresher interface {
	RefreshMilestones(ctx context.Context) []ics.ParsedEvent
}

// CaptureFunc takes a PNG snapshot. Tests replace capture.CaptureTimelinePNG.
type CaptureFunc func(ctx context.Context, opts capture.Options) error

// Scheduler owns the cron instance and the jobs it runs.
type Scheduler struct {
	cfg       *config.Config
	store     store.Interface
	refresher Refresher
	clock     timeline.Clock
	capture   CaptureFunc

	cron *cron.Cron
}

// New creates a Scheduler. A nil clock means the system clock.
func New(cfg *config.Config, st store.Interface, refresher Refresher, clock timeline.Clock) *Scheduler {
	if clock == nil {
		clock = timeline.SystemClock{}
	}
	return &Scheduler{
		cfg:       cfg,
		store:     st,
		refresher: refresher,
		clock:     clock,
		capture:   capture.CaptureTimelinePNG,
	}
}

// SetCapture overrides the screenshot implementation.
func (s *Scheduler) SetCapture(fn CaptureFunc) {
	s.capture = fn
}

// Start registers the jobs on cfg.RefreshCron and runs them until ctx is
// cancelled. Overlapping runs are skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(s.cfg.Location()),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(s.cfg.RefreshCron, func() {
		if err := s.RunOnce(ctx); err != nil {
			appLog.Error("scheduled run failed", err)
		}
	}); err != nil {
		return fmt.Errorf("scheduler: invalid refresh schedule %q: %w", s.cfg.RefreshCron, err)
	}

	s.cron = c
	c.Start()
	appLog.Info("scheduler started", "refresh", s.cfg.RefreshCron, "capture", s.cfg.Capture.Enabled)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("scheduler stopped")
	}()
	return nil
}

// RunOnce runs refresh and then capture synchronously.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	if err := s.Refresh(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.Capture(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Refresh reloads the calendar feeds and logs a portfolio summary. "now"
// is sampled once so every figure in the summary agrees.
func (s *Scheduler) Refresh(ctx context.Context) error {
	start := time.Now()
	events := 0
	if s.refresher != nil {
		events = len(s.refresher.RefreshMilestones(ctx))
	}

	entities, err := s.store.ListEntities(ctx)
	if err != nil {
		return fmt.Errorf("refresh: list entities: %w", err)
	}
	snap := aggregate.Aggregate(entities, s.clock.Now())

	appLog.Info("refresh complete",
		"feed_events", events,
		"entities", snap.Total,
		"active", snap.Active,
		"overdue", snap.OverdueCount,
		"avg_progress", snap.AverageProgress,
		"utilization", snap.Utilization,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Capture writes the timeline PNG when capture is enabled.
func (s *Scheduler) Capture(ctx context.Context) error {
	if !s.cfg.Capture.Enabled {
		return nil
	}
	opts := capture.Options{
		URL:        s.cfg.CaptureURL(),
		OutputPath: s.cfg.Capture.Output,
		Width:      s.cfg.Capture.Width,
		Height:     s.cfg.Capture.Height,
	}
	// The capture browser goes through the same basic auth as any client.
	if ba := s.cfg.BasicAuth; ba != nil {
		opts.Username, opts.Password = ba.Username, ba.Password
	}
	if err := s.capture(ctx, opts); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	appLog.Info("preview captured", "output", opts.OutputPath)
	return nil
}

// cronLogger routes cron's own messages through the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
