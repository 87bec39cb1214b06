package challenge

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeDaily      Type = "daily"
	TypeWeekly     Type = "weekly"
	TypeScreenTime Type = "screen_time"
)

func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeDaily, TypeWeekly, TypeScreenTime:
		return t, nil
	default:
		return "", fmt.Errorf("unknown challenge type %q", s)
	}
}

// Personal reports whether attempts of this type belong to a participant
// rather than to a team.
func (t Type) Personal() bool {
	return t == TypeDaily || t == TypeScreenTime
}

type Source string

const (
	SourceCatalog   Source = "catalog"
	SourceGenerated Source = "generated"
)

const MaxDescriptionLength = 280

type Template struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Type            Type      `json:"type" db:"type"`
	DifficultyLevel int       `json:"difficulty_level" db:"difficulty_level"`
	Description     string    `json:"description" db:"description"`
	MediaRef        *string   `json:"media_ref,omitempty" db:"media_ref"`
	Source          Source    `json:"source" db:"source"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Validate checks the rules every template must satisfy before it is
// written to the catalog.
func (t *Template) Validate() error {
	if _, err := ParseType(string(t.Type)); err != nil {
		return err
	}
	if t.DifficultyLevel < 1 || t.DifficultyLevel > 3 {
		return fmt.Errorf("difficulty level must be 1..3, got %d", t.DifficultyLevel)
	}
	desc := strings.TrimSpace(t.Description)
	if desc == "" {
		return fmt.Errorf("description is required")
	}
	if len([]rune(desc)) > MaxDescriptionLength {
		return fmt.Errorf("description exceeds %d characters", MaxDescriptionLength)
	}
	return nil
}
