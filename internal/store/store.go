package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"offScreenAPI/internal/types/challenge"
	"offScreenAPI/internal/types/ledger"
	"offScreenAPI/internal/types/participant"
	"offScreenAPI/internal/types/streak"
)

// Directory reads participants and teams. Membership is owned elsewhere.
type Directory interface {
	Participant(ctx context.Context, id uuid.UUID) (*participant.Participant, error)
	ParticipantByClerkID(ctx context.Context, clerkID string) (*participant.Participant, error)
	Team(ctx context.Context, id uuid.UUID) (*participant.Team, error)
	TeamMembers(ctx context.Context, teamID uuid.UUID) ([]participant.Participant, error)
}

type Catalog interface {
	ListTemplates(ctx context.Context, t challenge.Type) ([]challenge.Template, error)
	// EligibleTemplates lists templates of type t the actor has not yet
	// completed with a valid attempt.
	EligibleTemplates(ctx context.Context, t challenge.Type, actorID uuid.UUID) ([]challenge.Template, error)
	// InsertTemplates stores new templates and returns the ones written.
	// Templates whose description already exists for the type are skipped.
	InsertTemplates(ctx context.Context, templates []challenge.Template) ([]challenge.Template, error)
	// ValidDescriptions returns descriptions of templates the actor has
	// completed with a valid attempt.
	ValidDescriptions(ctx context.Context, actorID uuid.UUID, t challenge.Type) ([]string, error)
}

type Attempts interface {
	// OpenAttempt inserts a as open unless the actor already holds an
	// open-class attempt of the same type, in which case it returns
	// apperr.ErrConflict.
	OpenAttempt(ctx context.Context, a *challenge.Attempt) (*challenge.Attempt, error)
	Attempt(ctx context.Context, id uuid.UUID) (*challenge.AttemptView, error)
	ActiveAttempts(ctx context.Context, actorIDs []uuid.UUID) ([]challenge.AttemptView, error)
	AttemptHistory(ctx context.Context, actorIDs []uuid.UUID, limit int) ([]challenge.AttemptView, error)
	// RecordEvidence stores ref on an open-class attempt. It reports false
	// when the attempt is no longer open.
	RecordEvidence(ctx context.Context, id uuid.UUID, ref string) (bool, error)
	// MarkInvalid moves an open-class attempt whose window has not ended to
	// invalid_pending. It reports false when nothing matched.
	MarkInvalid(ctx context.Context, id uuid.UUID, reason string, now time.Time) (bool, error)
	// CloseValid is the only writer of points. See CloseRequest.
	CloseValid(ctx context.Context, req CloseRequest) (*CloseResult, error)
	// ExpireDue moves up to limit open-class attempts with end_at <= now to
	// expired and returns them.
	ExpireDue(ctx context.Context, now time.Time, limit int) ([]challenge.Attempt, error)
}

type Ledger interface {
	// Ledger returns the team's totals; a team without scored attempts reads
	// as zero. Unknown teams are apperr.ErrNotFound.
	Ledger(ctx context.Context, teamID uuid.UUID) (*ledger.TeamLedger, error)
	Standings(ctx context.Context, limit int) ([]ledger.Standing, error)
}

type Streaks interface {
	// CurrentWeeklyAttempt returns the team's weekly attempt whose window
	// contains now and which has not expired. An open attempt wins over a
	// validated one, then the most recently opened.
	CurrentWeeklyAttempt(ctx context.Context, teamID uuid.UUID, now time.Time) (*challenge.Attempt, error)
	Streaks(ctx context.Context, weeklyAttemptID uuid.UUID) ([]streak.Record, error)
}

type Devices interface {
	RegisterDevice(ctx context.Context, token participant.DeviceToken) error
	DeviceTokens(ctx context.Context, participantIDs []uuid.UUID) ([]participant.DeviceToken, error)
}

type Store interface {
	Directory
	Catalog
	Attempts
	Ledger
	Streaks
	Devices
	Ping(ctx context.Context) error
}

// CloseRequest carries everything the scoring transaction needs. Delta is
// computed by the caller from the attempt's template and the verdict.
type CloseRequest struct {
	AttemptID uuid.UUID
	Delta     int
	Now       time.Time
	// StreakDay is the weekday slot of Now in the participant's zone, used
	// when a daily attempt is linked to a current weekly attempt.
	StreakDay int
}

type CloseResult struct {
	Attempt challenge.Attempt
	// Closed is true only for the call whose compare-and-swap succeeded.
	Closed bool
	// LedgerTotal is the team total after the delta; nil when the attempt
	// has no team or was not closed by this call.
	LedgerTotal *int
	// Streak is the updated vector when a streak slot was marked.
	Streak *streak.Record
}

const (
	DefaultHistoryLimit   = 50
	DefaultStandingsLimit = 20
	DefaultSweepBatch     = 500
)
