package ledger

import (
	"time"

	"github.com/google/uuid"
)

type TeamLedger struct {
	TeamID        uuid.UUID `json:"team_id" db:"team_id"`
	Points        int       `json:"points" db:"points"`
	LastVariation int       `json:"last_variation" db:"last_variation"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Standing is one row of the leaderboard read model.
type Standing struct {
	Rank          int       `json:"rank"`
	TeamID        uuid.UUID `json:"team_id" db:"team_id"`
	TeamName      string    `json:"team_name" db:"team_name"`
	Points        int       `json:"points" db:"points"`
	LastVariation int       `json:"last_variation" db:"last_variation"`
}

// Event describes a single ledger mutation. It is published after the
// scoring transaction commits.
type Event struct {
	TeamID    uuid.UUID `json:"team_id"`
	AttemptID uuid.UUID `json:"attempt_id"`
	Delta     int       `json:"delta"`
	Points    int       `json:"points"`
	At        time.Time `json:"at"`
}

// Rank assigns competition ranks to standings already ordered by points:
// tied teams share a rank and the next rank skips accordingly.
func Rank(standings []Standing) []Standing {
	for i := range standings {
		if i > 0 && standings[i].Points == standings[i-1].Points {
			standings[i].Rank = standings[i-1].Rank
			continue
		}
		standings[i].Rank = i + 1
	}
	return standings
}
