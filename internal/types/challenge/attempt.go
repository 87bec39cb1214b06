package challenge

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOpen           Status = "open"
	StatusInvalidPending Status = "invalid_pending"
	StatusValid          Status = "valid"
	StatusExpired        Status = "expired"
)

// IsOpen reports whether the attempt still accepts evidence. Both open and
// invalid_pending count against the one-open-attempt-per-type rule.
func (s Status) IsOpen() bool {
	return s == StatusOpen || s == StatusInvalidPending
}

func (s Status) Terminal() bool {
	return s == StatusValid || s == StatusExpired
}

type ActorKind string

const (
	ActorParticipant ActorKind = "participant"
	ActorTeam        ActorKind = "team"
)

func ActorKindFor(t Type) ActorKind {
	if t.Personal() {
		return ActorParticipant
	}
	return ActorTeam
}

type Attempt struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	ActorID       uuid.UUID  `json:"actor_id" db:"actor_id"`
	ActorKind     ActorKind  `json:"actor_kind" db:"actor_kind"`
	TeamID        *uuid.UUID `json:"team_id,omitempty" db:"team_id"`
	ChallengeID   uuid.UUID  `json:"challenge_id" db:"challenge_id"`
	Type          Type       `json:"type" db:"type"`
	StartAt       time.Time  `json:"start_at" db:"start_at"`
	EndAt         time.Time  `json:"end_at" db:"end_at"`
	Status        Status     `json:"status" db:"status"`
	EvidenceRef   *string    `json:"evidence_ref,omitempty" db:"evidence_ref"`
	VerdictReason *string    `json:"verdict_reason,omitempty" db:"verdict_reason"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	PointsAwarded int        `json:"points_awarded" db:"points_awarded"`
	// StreakIndex is the weekday slot (0 = Monday) a validated daily attempt
	// marked on its team's weekly streak, if any.
	StreakIndex *int      `json:"streak_index,omitempty" db:"streak_index"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// InWindow reports whether now falls inside [StartAt, EndAt).
func (a *Attempt) InWindow(now time.Time) bool {
	return !now.Before(a.StartAt) && now.Before(a.EndAt)
}

// AttemptView is what the API returns: the attempt joined with its template.
type AttemptView struct {
	Attempt
	Description     string `json:"description"`
	DifficultyLevel int    `json:"difficulty_level"`
}
