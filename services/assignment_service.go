package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"offScreenAPI/internal/apperr"
	"offScreenAPI/internal/generation"
	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/metrics"
	"offScreenAPI/internal/store"
	"offScreenAPI/internal/types/challenge"
	"offScreenAPI/internal/types/participant"
	"offScreenAPI/utils"
)

// AssignmentService draws a template for an actor and opens an attempt on it.
type AssignmentService struct {
	store     store.Store
	generator generation.Generator
	notifier  Notifier
	log       *logger.Logger
	now       func() time.Time
}

// NewAssignmentService builds the service. gen may be nil, in which case an
// exhausted catalog is reported to the caller instead of generated.
func NewAssignmentService(st store.Store, gen generation.Generator, notifier Notifier, log *logger.Logger) *AssignmentService {
	return &AssignmentService{
		store:     st,
		generator: gen,
		notifier:  notifierOrNop(notifier),
		log:       log.With("service", "AssignmentService"),
		now:       time.Now,
	}
}

type actor struct {
	id     uuid.UUID
	kind   challenge.ActorKind
	teamID *uuid.UUID
	loc    *time.Location
}

func (s *AssignmentService) OpenDaily(ctx context.Context, participantID uuid.UUID) (*challenge.AttemptView, error) {
	return s.openPersonal(ctx, challenge.TypeDaily, participantID)
}

func (s *AssignmentService) OpenScreenTime(ctx context.Context, participantID uuid.UUID) (*challenge.AttemptView, error) {
	return s.openPersonal(ctx, challenge.TypeScreenTime, participantID)
}

func (s *AssignmentService) openPersonal(ctx context.Context, t challenge.Type, participantID uuid.UUID) (*challenge.AttemptView, error) {
	p, err := s.store.Participant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, t, actor{
		id:     p.ID,
		kind:   challenge.ActorParticipant,
		teamID: p.TeamID,
		loc:    participant.Location(p.Timezone),
	})
}

func (s *AssignmentService) OpenWeekly(ctx context.Context, teamID uuid.UUID) (*challenge.AttemptView, error) {
	team, err := s.store.Team(ctx, teamID)
	if err != nil {
		return nil, err
	}
	view, err := s.open(ctx, challenge.TypeWeekly, actor{
		id:     team.ID,
		kind:   challenge.ActorTeam,
		teamID: &team.ID,
		loc:    participant.Location(team.Timezone),
	})
	if err != nil {
		return nil, err
	}

	if to, err := recipients(ctx, s.store, view.Attempt); err != nil {
		s.log.Warn("failed to resolve weekly recipients", "team_id", team.ID, "error", err)
	} else {
		s.notifier.Notify(ctx, weeklyOpenedMessage(*view, to))
	}
	return view, nil
}

// OpenTeamWeekly opens the weekly attempt of the participant's team.
func (s *AssignmentService) OpenTeamWeekly(ctx context.Context, participantID uuid.UUID) (*challenge.AttemptView, error) {
	p, err := s.store.Participant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if p.TeamID == nil {
		return nil, apperr.NotFound("team")
	}
	return s.OpenWeekly(ctx, *p.TeamID)
}

func (s *AssignmentService) open(ctx context.Context, t challenge.Type, a actor) (*challenge.AttemptView, error) {
	tpl, err := s.pick(ctx, t, a.id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	start, end := utils.AttemptWindow(t, now, a.loc)
	created, err := s.store.OpenAttempt(ctx, &challenge.Attempt{
		ID:          uuid.New(),
		ActorID:     a.id,
		ActorKind:   a.kind,
		TeamID:      a.teamID,
		ChallengeID: tpl.ID,
		Type:        t,
		StartAt:     start,
		EndAt:       end,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open %s attempt: %w", t, err)
	}

	metrics.AttemptsOpened.WithLabelValues(string(t)).Inc()
	s.log.Info("attempt opened",
		"attempt_id", created.ID,
		"actor_id", a.id,
		"type", t,
		"challenge_id", tpl.ID,
		"end_at", end,
	)
	return &challenge.AttemptView{
		Attempt:         *created,
		Description:     tpl.Description,
		DifficultyLevel: tpl.DifficultyLevel,
	}, nil
}

// pick draws uniformly among the actor's eligible templates, generating new
// ones when the catalog is exhausted. Screen-time templates are reusable.
func (s *AssignmentService) pick(ctx context.Context, t challenge.Type, actorID uuid.UUID) (*challenge.Template, error) {
	var (
		candidates []challenge.Template
		err        error
	)
	if t == challenge.TypeScreenTime {
		candidates, err = s.store.ListTemplates(ctx, t)
	} else {
		candidates, err = s.store.EligibleTemplates(ctx, t, actorID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s templates: %w", t, err)
	}

	if len(candidates) == 0 {
		candidates, err = s.generate(ctx, t, actorID)
		if err != nil {
			return nil, err
		}
	}
	tpl := candidates[rand.IntN(len(candidates))]
	return &tpl, nil
}

func (s *AssignmentService) generate(ctx context.Context, t challenge.Type, actorID uuid.UUID) ([]challenge.Template, error) {
	if s.generator == nil || t == challenge.TypeScreenTime {
		return nil, fmt.Errorf("%s catalog: %w", t, apperr.ErrExhaustedCatalog)
	}

	avoid, err := s.store.ValidDescriptions(ctx, actorID, t)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed challenges: %w", err)
	}
	generated, err := s.generator.Generate(ctx, t, avoid)
	if err != nil {
		return nil, err
	}
	inserted, err := s.store.InsertTemplates(ctx, generated)
	if err != nil {
		return nil, fmt.Errorf("failed to store generated templates: %w", err)
	}
	if len(inserted) == 0 {
		return nil, fmt.Errorf("generated %s challenges already exist: %w", t, apperr.ErrExhaustedCatalog)
	}
	s.log.Info("catalog extended", "type", t, "actor_id", actorID, "templates", len(inserted))
	return inserted, nil
}
