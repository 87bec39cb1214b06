package participant

import (
	"time"

	"github.com/google/uuid"
)

type Participant struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	ClerkID   string     `json:"clerk_id" db:"clerk_id"`
	Username  string     `json:"username" db:"username"`
	TeamID    *uuid.UUID `json:"team_id,omitempty" db:"team_id"`
	Timezone  string     `json:"timezone" db:"timezone"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

type Team struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Timezone  string    `json:"timezone" db:"timezone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type DeviceToken struct {
	ParticipantID uuid.UUID `json:"participant_id" db:"participant_id"`
	Token         string    `json:"token" db:"token"`
	Platform      string    `json:"platform" db:"platform"`
}

// Location resolves an IANA zone name, falling back to UTC for empty or
// unknown names.
func Location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
