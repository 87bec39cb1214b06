package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"offScreenAPI/internal/apperr"
	"offScreenAPI/internal/store"
	"offScreenAPI/internal/types/challenge"
	"offScreenAPI/internal/types/ledger"
	"offScreenAPI/internal/types/participant"
	"offScreenAPI/internal/types/streak"
)

const maxStandingsLimit = 100

// LedgerService serves team totals, the leaderboard and weekly streaks.
type LedgerService struct {
	store store.Store
	now   func() time.Time
}

func NewLedgerService(st store.Store) *LedgerService {
	return &LedgerService{store: st, now: time.Now}
}

func (s *LedgerService) Read(ctx context.Context, teamID uuid.UUID) (*ledger.TeamLedger, error) {
	return s.store.Ledger(ctx, teamID)
}

func (s *LedgerService) Standings(ctx context.Context, limit int) ([]ledger.Standing, error) {
	if limit <= 0 {
		limit = store.DefaultStandingsLimit
	}
	if limit > maxStandingsLimit {
		limit = maxStandingsLimit
	}
	return s.store.Standings(ctx, limit)
}

type TeamStreaks struct {
	WeeklyAttemptID uuid.UUID             `json:"weekly_attempt_id"`
	StartAt         time.Time             `json:"start_at"`
	EndAt           time.Time             `json:"end_at"`
	Members         []streak.MemberStreak `json:"members"`
}

// StreaksForWeekly returns every member's vector for a weekly attempt as
// seen now: past days without a validation read as missed.
func (s *LedgerService) StreaksForWeekly(ctx context.Context, weeklyAttemptID uuid.UUID) (*TeamStreaks, error) {
	view, err := s.store.Attempt(ctx, weeklyAttemptID)
	if err != nil {
		return nil, err
	}
	if view.Type != challenge.TypeWeekly {
		return nil, apperr.NotFound("weekly attempt")
	}
	return s.teamStreaks(ctx, view.Attempt)
}

// MyStreak returns the streaks of the participant's team for the weekly
// attempt currently running.
func (s *LedgerService) MyStreak(ctx context.Context, participantID uuid.UUID) (*TeamStreaks, error) {
	p, err := s.store.Participant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if p.TeamID == nil {
		return nil, apperr.NotFound("team")
	}
	weekly, err := s.store.CurrentWeeklyAttempt(ctx, *p.TeamID, s.now())
	if err != nil {
		return nil, err
	}
	return s.teamStreaks(ctx, *weekly)
}

func (s *LedgerService) teamStreaks(ctx context.Context, weekly challenge.Attempt) (*TeamStreaks, error) {
	members, err := s.store.TeamMembers(ctx, weekly.ActorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team members: %w", err)
	}
	records, err := s.store.Streaks(ctx, weekly.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load streaks: %w", err)
	}
	byMember := make(map[uuid.UUID]streak.Vector, len(records))
	for _, r := range records {
		byMember[r.ParticipantID] = r.Slots
	}

	now := s.now()
	out := &TeamStreaks{
		WeeklyAttemptID: weekly.ID,
		StartAt:         weekly.StartAt,
		EndAt:           weekly.EndAt,
		Members:         make([]streak.MemberStreak, 0, len(members)),
	}
	for _, m := range members {
		out.Members = append(out.Members, streak.MemberStreak{
			ParticipantID: m.ID,
			Username:      m.Username,
			Slots:         byMember[m.ID].Normalize(streakToday(weekly, now, participant.Location(m.Timezone))),
		})
	}
	return out, nil
}

// streakToday is the slot index used to normalize a vector: today's weekday
// while the week runs, past the last slot once it ended.
func streakToday(weekly challenge.Attempt, now time.Time, loc *time.Location) int {
	switch {
	case !now.Before(weekly.EndAt):
		return streak.Days
	case now.Before(weekly.StartAt):
		return 0
	default:
		return streak.DayIndex(now, loc)
	}
}
