// Package cron runs the engine's one scheduled operation: the day-boundary
// rollover. It also catches up at startup, so missed midnights while the
// process was down are processed late without double-handling.
package cron

import (
	"context"
	"log/slog"
	"sync"

	cronlib "github.com/robfig/cron/v3"

	"lifequest/internal/engine"
)

// Config holds the dependencies for the rollover scheduler.
type Config struct {
	Service *engine.Service
	Logger  *slog.Logger
	// Spec is a standard 5-field cron expression; defaults to midnight.
	Spec string
}

type Scheduler struct {
	svc    *engine.Service
	logger *slog.Logger
	spec   string

	mu   sync.Mutex
	cron *cronlib.Cron
}

func NewScheduler(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	spec := cfg.Spec
	if spec == "" {
		spec = "0 0 * * *"
	}
	return &Scheduler{svc: cfg.Service, logger: logger, spec: spec}
}

// Start runs one catch-up rollover immediately, then schedules the
// midnight tick. Rollover is idempotent, so overlap with a manual
// `lq rollover` is harmless.
func (s *Scheduler) Start(ctx context.Context) error {
	s.runOnce(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	c := cronlib.New()
	if _, err := c.AddFunc(s.spec, func() { s.runOnce(ctx) }); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop halts the tick loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	res, ok := engine.Guard(s.logger, "rollover", func() (*engine.RolloverResult, error) {
		return s.svc.Rollover(ctx)
	})
	if !ok {
		return
	}
	s.logger.Info("rollover complete",
		"expired", res.Expired,
		"rolled_over", res.RolledOver,
		"failed", res.Failed,
		"instantiated", res.Instantiated,
		"streaks_broken", res.StreaksBroken,
	)
}
