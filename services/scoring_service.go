package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"offScreenAPI/internal/apperr"
	"offScreenAPI/internal/events"
	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/metrics"
	"offScreenAPI/internal/store"
	"offScreenAPI/internal/types/challenge"
	"offScreenAPI/internal/types/ledger"
	"offScreenAPI/internal/types/participant"
	"offScreenAPI/internal/types/streak"
	"offScreenAPI/utils"
)

// ScoringService is the only path that moves an attempt to valid and
// applies points to a team ledger.
type ScoringService struct {
	store     store.Store
	publisher events.Publisher
	notifier  Notifier
	log       *logger.Logger
	now       func() time.Time
}

func NewScoringService(st store.Store, publisher events.Publisher, notifier Notifier, log *logger.Logger) *ScoringService {
	log = log.With("service", "ScoringService")
	if publisher == nil {
		publisher = events.NewLogPublisher(log)
	}
	return &ScoringService{
		store:     st,
		publisher: publisher,
		notifier:  notifierOrNop(notifier),
		log:       log,
		now:       time.Now,
	}
}

type CloseOutcome struct {
	Attempt       challenge.Attempt `json:"attempt"`
	PointsAwarded int               `json:"points_awarded"`
	AlreadyClosed bool              `json:"already_closed"`
	LedgerTotal   *int              `json:"ledger_total,omitempty"`
}

// Close validates the attempt and applies its points exactly once. A second
// call on a validated attempt returns the recorded points with
// AlreadyClosed set. Attempts that expired or whose window ended return
// apperr.ErrWindowClosed.
func (s *ScoringService) Close(ctx context.Context, attemptID uuid.UUID, verdict challenge.Verdict) (*CloseOutcome, error) {
	if !verdict.Valid {
		return nil, apperr.Invalid("close requires a valid verdict")
	}
	view, err := s.store.Attempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if view.Status == challenge.StatusValid {
		return &CloseOutcome{Attempt: view.Attempt, PointsAwarded: view.PointsAwarded, AlreadyClosed: true}, nil
	}

	delta, err := utils.CalculatePoints(view.Type, view.DifficultyLevel, verdict)
	if err != nil {
		return nil, apperr.Invalid("%v", err)
	}

	now := s.now()
	streakDay := -1
	if view.Type == challenge.TypeDaily {
		p, err := s.store.Participant(ctx, view.ActorID)
		if err != nil {
			return nil, fmt.Errorf("failed to load attempt owner: %w", err)
		}
		streakDay = streak.DayIndex(now, participant.Location(p.Timezone))
	}

	res, err := s.store.CloseValid(ctx, store.CloseRequest{
		AttemptID: attemptID,
		Delta:     delta,
		Now:       now,
		StreakDay: streakDay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to close attempt: %w", err)
	}

	if !res.Closed {
		if res.Attempt.Status == challenge.StatusValid {
			return &CloseOutcome{Attempt: res.Attempt, PointsAwarded: res.Attempt.PointsAwarded, AlreadyClosed: true}, nil
		}
		return nil, apperr.ErrWindowClosed
	}

	s.afterClose(ctx, res, delta)
	return &CloseOutcome{
		Attempt:       res.Attempt,
		PointsAwarded: delta,
		LedgerTotal:   res.LedgerTotal,
	}, nil
}

// afterClose runs once the transaction committed. Failures are logged only.
func (s *ScoringService) afterClose(ctx context.Context, res *store.CloseResult, delta int) {
	a := res.Attempt
	metrics.AttemptsClosed.WithLabelValues(string(a.Type), string(challenge.StatusValid)).Inc()
	metrics.ObservePoints(string(a.Type), delta)

	s.log.Info("attempt validated",
		"attempt_id", a.ID,
		"type", a.Type,
		"delta", delta,
		"streak_index", a.StreakIndex,
	)

	if res.LedgerTotal != nil && a.TeamID != nil {
		ev := ledger.Event{
			TeamID:    *a.TeamID,
			AttemptID: a.ID,
			Delta:     delta,
			Points:    *res.LedgerTotal,
			At:        s.now().UTC(),
		}
		if err := s.publisher.PublishLedger(ctx, ev); err != nil {
			s.log.Warn("failed to publish ledger event", "team_id", ev.TeamID, "error", err)
		}
	}

	to, err := recipients(ctx, s.store, a)
	if err != nil {
		s.log.Warn("failed to resolve recipients", "attempt_id", a.ID, "error", err)
		return
	}
	s.notifier.Notify(ctx, validatedMessage(a, to))
}
