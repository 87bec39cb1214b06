package notification

import (
	"github.com/google/uuid"
)

type Kind string

const (
	KindAttemptValidated Kind = "attempt_validated"
	KindAttemptRejected  Kind = "attempt_rejected"
	KindAttemptExpired   Kind = "attempt_expired"
	KindWeeklyOpened     Kind = "weekly_opened"
)

// Message is one outcome to push to a set of participants. Recipients are
// resolved to device tokens by the dispatcher.
type Message struct {
	Kind       Kind              `json:"kind"`
	Recipients []uuid.UUID       `json:"recipients"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Data       map[string]string `json:"data,omitempty"`
}
