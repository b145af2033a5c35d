// Package scheduler периодически сверяет подписки со временем:
// просроченные pending и активные с истёкшим периодом переводятся в expired.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
)

// Sweeper: операции сверки, которые выполняет планировщик.
type Sweeper interface {
	ExpireStalePending(ctx context.Context, olderThan time.Duration) (int, error)
	ExpireLapsed(ctx context.Context) (int, error)
}

type Scheduler struct {
	sweeper    Sweeper
	log        *slog.Logger
	interval   time.Duration
	pendingTTL time.Duration
}

// New создает планировщик сверки.
func New(sweeper Sweeper, log *slog.Logger, interval, pendingTTL time.Duration) *Scheduler {
	return &Scheduler{
		sweeper:    sweeper,
		log:        log,
		interval:   interval,
		pendingTTL: pendingTTL,
	}
}

// Run выполняет сверку сразу и затем раз в interval, пока не отменён ctx.
func (s *Scheduler) Run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reconciler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.log.Info("starting subscription reconciliation")

	pending, err := s.sweeper.ExpireStalePending(ctx, s.pendingTTL)
	if err != nil {
		s.log.Error("failed to expire stale pending subscriptions", sl.Err(err))
	} else if pending > 0 {
		s.log.Info("expired stale pending subscriptions", "count", pending)
	}

	lapsed, err := s.sweeper.ExpireLapsed(ctx)
	if err != nil {
		s.log.Error("failed to expire lapsed subscriptions", sl.Err(err))
		return
	}
	if lapsed == 0 && pending == 0 {
		s.log.Info("no subscriptions to expire")
		return
	}
	s.log.Info("expired lapsed subscriptions", "count", lapsed)
}
