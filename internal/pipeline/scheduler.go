package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/health"
)

// Cycler runs one polling cycle.
type Cycler interface {
	RunCycle(ctx context.Context) (CycleResult, error)
}

// Scheduler runs a cycle immediately and then again interval after each
// cycle ends. A failed cycle is logged and the next one retries.
type Scheduler struct {
	cycler      Cycler
	interval    time.Duration
	lastSuccess atomic.Int64
	logger      *slog.Logger
}

func NewScheduler(cycler Cycler, interval time.Duration) *Scheduler {
	return &Scheduler{
		cycler:   cycler,
		interval: interval,
		logger:   slog.Default().With("component", "scheduler"),
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)
	for {
		_, err := s.cycler.RunCycle(ctx)
		switch {
		case err == nil:
			s.lastSuccess.Store(time.Now().UnixNano())
		case ctx.Err() == nil:
			s.logger.Warn("cycle failed, retrying after interval", "error", err, "next_in", s.interval)
		}
		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped", "reason", ctx.Err())
			return nil
		case <-timer.C:
		}
	}
}

// LastSuccess returns when the latest successful cycle ended, or the zero
// time.
func (s *Scheduler) LastSuccess() time.Time {
	n := s.lastSuccess.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// HealthCheck reports the loop degraded until a cycle has succeeded and
// down once no cycle has succeeded for maxAge.
func (s *Scheduler) HealthCheck(maxAge time.Duration) health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		last := s.LastSuccess()
		switch {
		case last.IsZero():
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "no successful cycle yet"}
		case time.Since(last) > maxAge:
			return health.ComponentHealth{Status: health.StatusDown, Message: fmt.Sprintf("last successful cycle %s ago", time.Since(last).Round(time.Second))}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	}
}
