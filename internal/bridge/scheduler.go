package bridge

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler drives the controller: first cycle immediately, then one
// cycle per interval. Cycles never overlap because the next delay is
// not armed until the previous cycle, cooldown included, has returned.
type Scheduler struct {
	controller *Controller
	clock      clockwork.Clock
	interval   time.Duration
}

func NewScheduler(controller *Controller, clock clockwork.Clock, interval time.Duration) *Scheduler {
	return &Scheduler{controller: controller, clock: clock, interval: interval}
}

// Run polls until ctx is cancelled. A failed cycle never stops the
// schedule; the outcome is already logged and counted by the controller.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("Polling started", "interval", s.interval)

	for {
		result := s.controller.RunCycle(ctx)
		slog.Debug("Cycle finished", "outcome", string(result.Outcome), "chunks", result.Chunks)

		select {
		case <-ctx.Done():
			slog.Info("Polling stopped")
			return
		case <-s.clock.After(s.interval):
		}
	}
}
