package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-hub/contract"
)

// SweeperWorker periodically expires sessions that have been idle for
// at least idleThreshold. The engine does the actual logout; the worker
// only supplies the clock.
type SweeperWorker struct {
	log           *slog.Logger
	sweeper       contract.ISessionSweeper
	interval      time.Duration
	idleThreshold time.Duration
}

func NewSweeperWorker(log *slog.Logger, sweeper contract.ISessionSweeper,
	interval, idleThreshold time.Duration) *SweeperWorker {
	return &SweeperWorker{
		log:           log,
		sweeper:       sweeper,
		interval:      interval,
		idleThreshold: idleThreshold,
	}
}

func (w *SweeperWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if expired := w.sweeper.Sweep(time.Now(), w.idleThreshold); expired > 0 {
				w.log.Info("idle sweep done", "expired", expired)
			}
		}
	}
}
