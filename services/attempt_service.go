package services

import (
	"context"

	"github.com/google/uuid"

	"offScreenAPI/internal/apperr"
	"offScreenAPI/internal/store"
	"offScreenAPI/internal/types/challenge"
	"offScreenAPI/internal/types/participant"
)

// AttemptService answers read queries about attempts on behalf of a
// participant.
type AttemptService struct {
	store store.Store
}

func NewAttemptService(st store.Store) *AttemptService {
	return &AttemptService{store: st}
}

// actorIDs are the actors whose attempts p may see: p itself and p's team.
func actorIDs(p *participant.Participant) []uuid.UUID {
	ids := []uuid.UUID{p.ID}
	if p.TeamID != nil {
		ids = append(ids, *p.TeamID)
	}
	return ids
}

// canAccess reports whether p owns a personal attempt or belongs to the team
// holding a team attempt.
func canAccess(p *participant.Participant, a challenge.Attempt) bool {
	if a.ActorKind == challenge.ActorParticipant {
		return a.ActorID == p.ID
	}
	return p.TeamID != nil && *p.TeamID == a.ActorID
}

// authorizedAttempt loads an attempt and hides it as not found when the
// participant has no access.
func authorizedAttempt(ctx context.Context, st store.Store, attemptID, participantID uuid.UUID) (*challenge.AttemptView, *participant.Participant, error) {
	p, err := st.Participant(ctx, participantID)
	if err != nil {
		return nil, nil, err
	}
	view, err := st.Attempt(ctx, attemptID)
	if err != nil {
		return nil, nil, err
	}
	if !canAccess(p, view.Attempt) {
		return nil, nil, apperr.NotFound("attempt")
	}
	return view, p, nil
}

func (s *AttemptService) Get(ctx context.Context, attemptID, participantID uuid.UUID) (*challenge.AttemptView, error) {
	view, _, err := authorizedAttempt(ctx, s.store, attemptID, participantID)
	return view, err
}

func (s *AttemptService) Active(ctx context.Context, participantID uuid.UUID) ([]challenge.AttemptView, error) {
	p, err := s.store.Participant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	return s.store.ActiveAttempts(ctx, actorIDs(p))
}

func (s *AttemptService) History(ctx context.Context, participantID uuid.UUID, limit int) ([]challenge.AttemptView, error) {
	p, err := s.store.Participant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > store.DefaultHistoryLimit {
		limit = store.DefaultHistoryLimit
	}
	return s.store.AttemptHistory(ctx, actorIDs(p), limit)
}
