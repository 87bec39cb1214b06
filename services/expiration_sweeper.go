package services

import (
	"context"
	"fmt"
	"time"

	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/metrics"
	"offScreenAPI/internal/store"
	"offScreenAPI/internal/types/challenge"
)

const DefaultSweepInterval = time.Minute

// ExpirationSweeper moves attempts whose window ended without validation to
// expired. Expired attempts never change a ledger.
type ExpirationSweeper struct {
	store    store.Store
	notifier Notifier
	interval time.Duration
	batch    int
	log      *logger.Logger
	now      func() time.Time
}

func NewExpirationSweeper(st store.Store, notifier Notifier, interval time.Duration, batch int, log *logger.Logger) *ExpirationSweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if batch <= 0 {
		batch = store.DefaultSweepBatch
	}
	return &ExpirationSweeper{
		store:    st,
		notifier: notifierOrNop(notifier),
		interval: interval,
		batch:    batch,
		log:      log.With("service", "ExpirationSweeper"),
		now:      time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *ExpirationSweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("sweeper started", "interval", s.interval, "batch", s.batch)
	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// SweepOnce expires every due attempt, batch by batch, and returns how many
// it moved.
func (s *ExpirationSweeper) SweepOnce(ctx context.Context) (int, error) {
	now := s.now()
	total := 0
	for {
		expired, err := s.store.ExpireDue(ctx, now, s.batch)
		if err != nil {
			return total, fmt.Errorf("failed to expire attempts: %w", err)
		}
		for _, a := range expired {
			s.afterExpire(ctx, a)
		}
		total += len(expired)
		if len(expired) < s.batch {
			break
		}
	}
	if total > 0 {
		metrics.SweeperExpired.Add(float64(total))
		s.log.Info("attempts expired", "count", total)
	}
	return total, nil
}

func (s *ExpirationSweeper) afterExpire(ctx context.Context, a challenge.Attempt) {
	metrics.AttemptsClosed.WithLabelValues(string(a.Type), string(challenge.StatusExpired)).Inc()
	to, err := recipients(ctx, s.store, a)
	if err != nil {
		s.log.Warn("failed to resolve recipients", "attempt_id", a.ID, "error", err)
		return
	}
	s.notifier.Notify(ctx, expiredMessage(a, to))
}
