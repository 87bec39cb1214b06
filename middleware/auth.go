package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/google/uuid"

	"offScreenAPI/internal/apperr"
	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/types/participant"
)

type contextKey string

const ClerkIDKey contextKey = "clerkID"
const ParticipantIDKey contextKey = "participantID"

// TokenVerifier checks a bearer token and returns its subject.
type TokenVerifier func(ctx context.Context, token string) (string, error)

// ClerkVerifier verifies session tokens against Clerk. clerk.SetKey must have
// been called.
func ClerkVerifier(ctx context.Context, token string) (string, error) {
	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{Token: token})
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

type ParticipantResolver interface {
	ParticipantByClerkID(ctx context.Context, clerkID string) (*participant.Participant, error)
}

type Authenticator struct {
	verify       TokenVerifier
	participants ParticipantResolver
	log          *logger.Logger
}

func NewAuthenticator(verify TokenVerifier, participants ParticipantResolver, log *logger.Logger) *Authenticator {
	return &Authenticator{verify: verify, participants: participants, log: log.With("middleware", "auth")}
}

// ClerkAuthMiddleware validates the bearer token and resolves its subject to
// a participant. Both ids are stored in the request context.
func (a *Authenticator) ClerkAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader || token == "" {
			respondWithError(w, http.StatusUnauthorized, "Invalid authorization format. Use 'Bearer <token>'")
			return
		}

		clerkID, err := a.verify(r.Context(), token)
		if err != nil {
			a.log.Debug("token verification failed", "error", err)
			respondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		p, err := a.participants.ParticipantByClerkID(r.Context(), clerkID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				respondWithError(w, http.StatusForbidden, "No participant for this account")
				return
			}
			a.log.Error("failed to resolve participant", "error", err)
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		ctx := context.WithValue(r.Context(), ClerkIDKey, clerkID)
		ctx = context.WithValue(ctx, ParticipantIDKey, p.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClerkID extracts Clerk user ID from context
func GetClerkID(ctx context.Context) (string, bool) {
	clerkID, ok := ctx.Value(ClerkIDKey).(string)
	return clerkID, ok
}

func GetParticipantID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ParticipantIDKey).(uuid.UUID)
	return id, ok
}

// WithParticipant returns ctx carrying an authenticated participant.
func WithParticipant(ctx context.Context, clerkID string, participantID uuid.UUID) context.Context {
	ctx = context.WithValue(ctx, ClerkIDKey, clerkID)
	return context.WithValue(ctx, ParticipantIDKey, participantID)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"error": "` + message + `"}`))
}
