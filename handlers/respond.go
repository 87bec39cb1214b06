package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"offScreenAPI/internal/apperr"
	"offScreenAPI/internal/logger"
	"offScreenAPI/middleware"
)

const requestTimeout = 5 * time.Second

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps domain errors to status codes. Anything
// unclassified is logged and reported as 500.
func respondWithServiceError(w http.ResponseWriter, log *logger.Logger, err error) {
	var rejected *apperr.RejectedError
	var external *apperr.ExternalError

	switch {
	case errors.As(err, &rejected):
		respondWithJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":        "Evidence rejected",
			"reason":       rejected.Reason,
			"canResubmit":  true,
			"windowEndsAt": rejected.WindowEndsAt,
		})
	case errors.Is(err, apperr.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrExhaustedCatalog):
		respondWithJSON(w, http.StatusConflict, map[string]any{
			"error": apperr.ErrExhaustedCatalog.Error(),
			"code":  "exhausted_catalog",
		})
	case errors.Is(err, apperr.ErrConflict):
		respondWithJSON(w, http.StatusConflict, map[string]any{
			"error": apperr.ErrConflict.Error(),
			"code":  "conflict",
		})
	case errors.Is(err, apperr.ErrWindowClosed):
		respondWithJSON(w, http.StatusGone, map[string]any{
			"error":       apperr.ErrWindowClosed.Error(),
			"canResubmit": false,
		})
	case errors.As(err, &external):
		log.Warn("external service failed", "provider", external.Provider, "error", err)
		respondWithJSON(w, http.StatusBadGateway, map[string]any{
			"error":     apperr.ErrExternalService.Error(),
			"retryable": true,
		})
	case errors.Is(err, apperr.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error("request failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func participantFrom(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.GetParticipantID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
	}
	return id, ok
}

func uuidVar(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
