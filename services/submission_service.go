package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"offScreenAPI/internal/apperr"
	"offScreenAPI/internal/evidence"
	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/oracle"
	"offScreenAPI/internal/store"
	"offScreenAPI/internal/types/challenge"
	"offScreenAPI/internal/types/participant"
)

// SubmissionService takes evidence for an open attempt, asks the oracle for
// a verdict and hands valid attempts to the scoring service.
type SubmissionService struct {
	store    store.Store
	evidence evidence.Store
	oracle   oracle.Oracle
	scoring  *ScoringService
	log      *logger.Logger
	now      func() time.Time
}

func NewSubmissionService(st store.Store, ev evidence.Store, o oracle.Oracle, scoring *ScoringService, log *logger.Logger) *SubmissionService {
	if o == nil {
		o = oracle.Unavailable{}
	}
	return &SubmissionService{
		store:    st,
		evidence: ev,
		oracle:   o,
		scoring:  scoring,
		log:      log.With("service", "SubmissionService"),
		now:      time.Now,
	}
}

type Submission struct {
	AttemptID     uuid.UUID
	ParticipantID uuid.UUID
	Evidence      []byte
	ContentType   string
}

// SubmitEvidence returns the verdict for a piece of evidence. Invalid
// verdicts come back as *apperr.RejectedError and leave the attempt open for
// resubmission until its window ends. Oracle failures leave the attempt
// untouched.
func (s *SubmissionService) SubmitEvidence(ctx context.Context, sub Submission) (*challenge.SubmissionResult, error) {
	view, p, err := authorizedAttempt(ctx, s.store, sub.AttemptID, sub.ParticipantID)
	if err != nil {
		return nil, err
	}
	if res, err := s.checkOpen(view.Attempt); res != nil || err != nil {
		return res, err
	}

	contentType, err := evidence.DetectContentType(sub.Evidence, sub.ContentType)
	if err != nil {
		return nil, err
	}
	ref, err := s.evidence.Put(ctx, evidence.Key(view.ID, contentType, s.now()), contentType, sub.Evidence)
	if err != nil {
		return nil, fmt.Errorf("failed to store evidence: %w", err)
	}
	recorded, err := s.store.RecordEvidence(ctx, view.ID, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to record evidence: %w", err)
	}
	if !recorded {
		return s.settled(ctx, view.ID)
	}

	verdict, err := s.oracle.Validate(ctx, oracle.Request{
		Type:        view.Type,
		Description: view.Description,
		Evidence:    sub.Evidence,
		ContentType: contentType,
		Day:         view.StartAt.In(participant.Location(p.Timezone)),
	})
	if err != nil {
		s.log.Warn("oracle failed", "attempt_id", view.ID, "error", err)
		return nil, err
	}

	if !verdict.Valid {
		return s.reject(ctx, view.Attempt, verdict)
	}

	out, err := s.scoring.Close(ctx, view.ID, verdict)
	if err != nil {
		return nil, err
	}
	return &challenge.SubmissionResult{
		AttemptID:     view.ID.String(),
		Status:        challenge.StatusValid,
		Verdict:       verdict,
		PointsAwarded: out.PointsAwarded,
		AlreadyClosed: out.AlreadyClosed,
	}, nil
}

// checkOpen short-circuits submissions on attempts that can no longer take
// evidence.
func (s *SubmissionService) checkOpen(a challenge.Attempt) (*challenge.SubmissionResult, error) {
	switch {
	case a.Status == challenge.StatusValid:
		return alreadyValid(a), nil
	case a.Status == challenge.StatusExpired, !a.InWindow(s.now()):
		return nil, apperr.ErrWindowClosed
	}
	return nil, nil
}

// settled re-reads an attempt a concurrent writer closed under us.
func (s *SubmissionService) settled(ctx context.Context, id uuid.UUID) (*challenge.SubmissionResult, error) {
	view, err := s.store.Attempt(ctx, id)
	if err != nil {
		return nil, err
	}
	if view.Status == challenge.StatusValid {
		return alreadyValid(view.Attempt), nil
	}
	return nil, apperr.ErrWindowClosed
}

func (s *SubmissionService) reject(ctx context.Context, a challenge.Attempt, verdict challenge.Verdict) (*challenge.SubmissionResult, error) {
	marked, err := s.store.MarkInvalid(ctx, a.ID, verdict.Reason, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to record rejection: %w", err)
	}
	if !marked {
		return s.settled(ctx, a.ID)
	}
	s.log.Info("evidence rejected", "attempt_id", a.ID, "reason", verdict.Reason)
	return nil, &apperr.RejectedError{Reason: verdict.Reason, WindowEndsAt: a.EndAt}
}

func alreadyValid(a challenge.Attempt) *challenge.SubmissionResult {
	return &challenge.SubmissionResult{
		AttemptID:     a.ID.String(),
		Status:        challenge.StatusValid,
		Verdict:       challenge.ValidVerdict(),
		PointsAwarded: a.PointsAwarded,
		AlreadyClosed: true,
	}
}
