package handlers

import (
	"context"
	"net/http"
	"strconv"

	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/types/ledger"
	"offScreenAPI/services"
)

type LedgerHandler struct {
	ledger *services.LedgerService
	log    *logger.Logger
}

func NewLedgerHandler(ledger *services.LedgerService, log *logger.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, log: log.With("handler", "ledger")}
}

func (h *LedgerHandler) TeamLedger(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	teamID, ok := uuidVar(w, r, "teamID")
	if !ok {
		return
	}
	l, err := h.ledger.Read(ctx, teamID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, l)
}

func (h *LedgerHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	standings, err := h.ledger.Standings(ctx, limit)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	if standings == nil {
		standings = []ledger.Standing{}
	}
	respondWithJSON(w, http.StatusOK, standings)
}

func (h *LedgerHandler) MyStreaks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	participantID, ok := participantFrom(w, r)
	if !ok {
		return
	}
	streaks, err := h.ledger.MyStreak(ctx, participantID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, streaks)
}

func (h *LedgerHandler) WeeklyStreaks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	attemptID, ok := uuidVar(w, r, "attemptID")
	if !ok {
		return
	}
	streaks, err := h.ledger.StreaksForWeekly(ctx, attemptID)
	if err != nil {
		respondWithServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, streaks)
}
