package notification

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/types/participant"
)

type FCMService struct {
	client *messaging.Client
	log    *logger.Logger
}

// NewFCMService initializes FCMService. Base64 encoded service account
// credentials take precedence over the key file at localFilePath.
func NewFCMService(ctx context.Context, localFilePath, encodedCreds string, log *logger.Logger) (*FCMService, error) {
	log = log.With("service", "FCMService")
	opt, err := credentialsOption(localFilePath, encodedCreds)
	if err != nil {
		return nil, err
	}
	if encodedCreds != "" {
		log.Info("initializing from FCM_SERVICE_ACCOUNT_JSON")
	} else {
		log.Info("initializing from file", "path", localFilePath)
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	return &FCMService{client: client, log: log}, nil
}

// SendPush delivers one message per token; FCM's batch endpoint is not used.
// It fails only when every delivery failed.
func credentialsOption(localFilePath, encodedCreds string) (option.ClientOption, error) {
	if encodedCreds != "" {
		decoded, err := base64.StdEncoding.DecodeString(encodedCreds)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 firebase credentials from FCM_SERVICE_ACCOUNT_JSON: %w", err)
		}
		return option.WithCredentialsJSON(decoded), nil
	}
	if localFilePath == "" {
		return nil, fmt.Errorf("neither FCM_CREDENTIALS_FILE nor FCM_SERVICE_ACCOUNT_JSON is set")
	}
	if _, err := os.Stat(localFilePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("local firebase file not found: %s, and FCM_SERVICE_ACCOUNT_JSON is not set", localFilePath)
	}
	return option.WithCredentialsFile(localFilePath), nil
}

func (s *FCMService) SendPush(ctx context.Context, tokens []participant.DeviceToken, title, body string, data map[string]string) error {
	successCount, failureCount := 0, 0

	for _, t := range tokens {
		msg := &messaging.Message{
			Token: t.Token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data: data,
		}
		switch t.Platform {
		case "ios":
			msg.APNS = &messaging.APNSConfig{
				Payload: &messaging.APNSPayload{Aps: &messaging.Aps{Sound: "default"}},
			}
		default:
			msg.Android = &messaging.AndroidConfig{
				Priority:     "high",
				Notification: &messaging.AndroidNotification{Sound: "default"},
			}
		}

		if _, err := s.client.Send(ctx, msg); err != nil {
			s.log.Warn("push failed", "participant_id", t.ParticipantID, "error", err)
			failureCount++
			continue
		}
		successCount++
	}

	s.log.Debug("push batch sent", "sent", successCount, "failed", failureCount)
	if successCount == 0 && failureCount > 0 {
		return fmt.Errorf("all %d push notifications failed", failureCount)
	}
	return nil
}
