package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/notification"
	"offScreenAPI/services"
)

type NotificationHandler struct {
	service *services.NotificationService
	log     *logger.Logger
}

func NewNotificationHandler(service *services.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, log: log.With("handler", "notification")}
}

func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	participantID, ok := participantFrom(w, r)
	if !ok {
		return
	}

	var req notification.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.RegisterDevice(ctx, participantID, req); err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Device registered successfully"})
}
