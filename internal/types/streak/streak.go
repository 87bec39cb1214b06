package streak

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Slot int8

const (
	Unknown Slot = iota
	Missed
	Done
)

const Days = 7

func (s Slot) code() byte {
	switch s {
	case Done:
		return 't'
	case Missed:
		return 'f'
	default:
		return 'u'
	}
}

func slotFromCode(c byte) (Slot, error) {
	switch c {
	case 't':
		return Done, nil
	case 'f':
		return Missed, nil
	case 'u':
		return Unknown, nil
	default:
		return Unknown, fmt.Errorf("invalid streak slot code %q", c)
	}
}

// MarshalJSON renders true/false/null, the tri-state clients expect.
func (s Slot) MarshalJSON() ([]byte, error) {
	switch s {
	case Done:
		return []byte("true"), nil
	case Missed:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// Vector is the fixed seven-slot weekly record of a participant, indexed by
// ISO weekday with Monday at 0. It is stored as a seven character code and
// decoded once at the storage boundary with Parse.
type Vector [Days]Slot

func (v Vector) String() string {
	b := make([]byte, Days)
	for i, s := range v {
		b[i] = s.code()
	}
	return string(b)
}

func Parse(code string) (Vector, error) {
	var v Vector
	if len(code) != Days {
		return v, fmt.Errorf("streak code must have %d slots, got %d", Days, len(code))
	}
	for i := 0; i < Days; i++ {
		s, err := slotFromCode(code[i])
		if err != nil {
			return v, err
		}
		v[i] = s
	}
	return v, nil
}

func (v Vector) MarshalJSON() ([]byte, error) {
	return json.Marshal([Days]Slot(v))
}

// Mark sets the slot for day to Done. Out of range days are ignored.
func (v Vector) Mark(day int) Vector {
	if day >= 0 && day < Days {
		v[day] = Done
	}
	return v
}

// Normalize returns the vector as seen on day today (0..6): every earlier
// slot that is not Done becomes Missed, today and later keep their value.
// Passing Days or more closes the whole week.
func (v Vector) Normalize(today int) Vector {
	for i := 0; i < Days && i < today; i++ {
		if v[i] != Done {
			v[i] = Missed
		}
	}
	return v
}

// DayIndex maps t to its ISO weekday slot in loc: Monday 0 through Sunday 6.
func DayIndex(t time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	return (int(t.In(loc).Weekday()) + 6) % 7
}

// Record is the stored vector of one participant for one weekly attempt.
type Record struct {
	ParticipantID   uuid.UUID `json:"participant_id" db:"participant_id"`
	WeeklyAttemptID uuid.UUID `json:"weekly_attempt_id" db:"weekly_attempt_id"`
	Slots           Vector    `json:"slots" db:"slots"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// MemberStreak is the read view handed to clients.
type MemberStreak struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Username      string    `json:"username"`
	Slots         Vector    `json:"slots"`
}
