package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"offScreenAPI/internal/evidence"
	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/types/challenge"
	"offScreenAPI/services"
)

type ChallengeHandler struct {
	assignment *services.AssignmentService
	submission *services.SubmissionService
	attempts   *services.AttemptService
	log        *logger.Logger
}

func NewChallengeHandler(assignment *services.AssignmentService, submission *services.SubmissionService, attempts *services.AttemptService, log *logger.Logger) *ChallengeHandler {
	return &ChallengeHandler{
		assignment: assignment,
		submission: submission,
		attempts:   attempts,
		log:        log.With("handler", "challenge"),
	}
}

func (h *ChallengeHandler) OpenDaily(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, h.assignment.OpenDaily)
}

func (h *ChallengeHandler) OpenScreenTime(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, h.assignment.OpenScreenTime)
}

func (h *ChallengeHandler) OpenTeamWeekly(w http.ResponseWriter, r *http.Request) {
	h.open(w, r, h.assignment.OpenTeamWeekly)
}

func (h *ChallengeHandler) open(w http.ResponseWriter, r *http.Request, open func(context.Context, uuid.UUID) (*challenge.AttemptView, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	participantID, ok := participantFrom(w, r)
	if !ok {
		return
	}
	view, err := open(ctx, participantID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, view)
}

func (h *ChallengeHandler) Active(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	participantID, ok := participantFrom(w, r)
	if !ok {
		return
	}
	active, err := h.attempts.Active(ctx, participantID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	if active == nil {
		active = []challenge.AttemptView{}
	}
	respondWithJSON(w, http.StatusOK, active)
}

func (h *ChallengeHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	participantID, ok := participantFrom(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	history, err := h.attempts.History(ctx, participantID, limit)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	if history == nil {
		history = []challenge.AttemptView{}
	}
	respondWithJSON(w, http.StatusOK, history)
}

func (h *ChallengeHandler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	participantID, ok := participantFrom(w, r)
	if !ok {
		return
	}
	attemptID, ok := uuidVar(w, r, "attemptID")
	if !ok {
		return
	}
	view, err := h.attempts.Get(ctx, attemptID, participantID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// SubmitEvidence takes a multipart upload with the photo in the "evidence"
// field. The oracle call runs under the request context; its own timeout
// bounds it.
func (h *ChallengeHandler) SubmitEvidence(w http.ResponseWriter, r *http.Request) {
	participantID, ok := participantFrom(w, r)
	if !ok {
		return
	}
	attemptID, ok := uuidVar(w, r, "attemptID")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, evidence.MaxSize+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Evidence too large")
			return
		}
		respondWithError(w, http.StatusBadRequest, "Expected multipart form with an evidence file")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("evidence")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Missing evidence file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, evidence.MaxSize+1))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Could not read evidence")
		return
	}

	result, err := h.submission.SubmitEvidence(r.Context(), services.Submission{
		AttemptID:     attemptID,
		ParticipantID: participantID,
		Evidence:      data,
		ContentType:   header.Header.Get("Content-Type"),
	})
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
