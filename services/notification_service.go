package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"offScreenAPI/internal/apperr"
	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/notification"
	"offScreenAPI/internal/store"
	"offScreenAPI/internal/types/challenge"
	"offScreenAPI/internal/types/participant"
)

// Notifier queues outcome pushes. Implementations must not block the caller
// for long and never fail the operation that triggered them.
type Notifier interface {
	Notify(ctx context.Context, msg notification.Message)
}

type nopNotifier struct{}

func (nopNotifier) Notify(ctx context.Context, msg notification.Message) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

type NotificationService struct {
	store store.Store
	log   *logger.Logger
}

func NewNotificationService(st store.Store, log *logger.Logger) *NotificationService {
	return &NotificationService{store: st, log: log.With("service", "NotificationService")}
}

func (s *NotificationService) RegisterDevice(ctx context.Context, participantID uuid.UUID, req notification.RegisterDeviceRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return apperr.Invalid("token is required")
	}
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if platform == "" {
		platform = "android"
	}
	if !notification.ValidPlatform(platform) {
		return apperr.Invalid("unsupported platform %q", req.Platform)
	}
	if err := s.store.RegisterDevice(ctx, participant.DeviceToken{
		ParticipantID: participantID,
		Token:         token,
		Platform:      platform,
	}); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

// recipients lists who hears about an attempt: its owner for personal
// attempts, every member for team attempts.
func recipients(ctx context.Context, dir store.Directory, a challenge.Attempt) ([]uuid.UUID, error) {
	if a.ActorKind == challenge.ActorParticipant {
		return []uuid.UUID{a.ActorID}, nil
	}
	members, err := dir.TeamMembers(ctx, a.ActorID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func typeLabel(t challenge.Type) string {
	switch t {
	case challenge.TypeWeekly:
		return "Weekly"
	case challenge.TypeScreenTime:
		return "Screen time"
	default:
		return "Daily"
	}
}

func validatedMessage(a challenge.Attempt, to []uuid.UUID) notification.Message {
	body := fmt.Sprintf("Challenge completed: %+d points for your team.", a.PointsAwarded)
	return notification.Message{
		Kind:       notification.KindAttemptValidated,
		Recipients: to,
		Title:      typeLabel(a.Type) + " challenge validated",
		Body:       body,
		Data: map[string]string{
			"attempt_id": a.ID.String(),
			"points":     fmt.Sprint(a.PointsAwarded),
		},
	}
}

func expiredMessage(a challenge.Attempt, to []uuid.UUID) notification.Message {
	return notification.Message{
		Kind:       notification.KindAttemptExpired,
		Recipients: to,
		Title:      typeLabel(a.Type) + " challenge expired",
		Body:       "The window closed before the challenge was validated.",
		Data:       map[string]string{"attempt_id": a.ID.String()},
	}
}

func weeklyOpenedMessage(v challenge.AttemptView, to []uuid.UUID) notification.Message {
	return notification.Message{
		Kind:       notification.KindWeeklyOpened,
		Recipients: to,
		Title:      "New weekly challenge",
		Body:       v.Description,
		Data:       map[string]string{"attempt_id": v.ID.String()},
	}
}
