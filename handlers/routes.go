package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the authenticated API on r. submitLimit wraps the
// evidence endpoint, which is the only one that calls the oracle.
func RegisterRoutes(r *mux.Router, ch *ChallengeHandler, lh *LedgerHandler, nh *NotificationHandler, submitLimit func(http.Handler) http.Handler) {
	r.HandleFunc("/challenges/daily", ch.OpenDaily).Methods("POST")
	r.HandleFunc("/challenges/screen-time", ch.OpenScreenTime).Methods("POST")
	r.HandleFunc("/teams/me/challenges/weekly", ch.OpenTeamWeekly).Methods("POST")
	r.HandleFunc("/challenges/active", ch.Active).Methods("GET")
	r.HandleFunc("/challenges/history", ch.History).Methods("GET")
	r.HandleFunc("/attempts/{attemptID}", ch.GetAttempt).Methods("GET")
	r.Handle("/attempts/{attemptID}/evidence", submitLimit(http.HandlerFunc(ch.SubmitEvidence))).Methods("POST")
	r.HandleFunc("/attempts/{attemptID}/streaks", lh.WeeklyStreaks).Methods("GET")

	r.HandleFunc("/teams/me/streaks", lh.MyStreaks).Methods("GET")
	r.HandleFunc("/teams/{teamID}/ledger", lh.TeamLedger).Methods("GET")
	r.HandleFunc("/leaderboard", lh.Leaderboard).Methods("GET")

	r.HandleFunc("/notifications/register-device", nh.RegisterDevice).Methods("POST")
}
