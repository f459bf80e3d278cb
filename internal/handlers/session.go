package handlers

import (
	"net/http"

	"signserver/internal/analytics"
	"signserver/internal/logger"
	"signserver/internal/middleware"
	"signserver/internal/services"
)

// SessionSummary is the running tally for one browser session.
type SessionSummary struct {
	ImagesAnalyzed  int                    `json:"imagesAnalyzed"`
	TotalDetections int                    `json:"totalDetections"`
	Counts          []analytics.LabelCount `json:"counts"`
}

// GetSessionHandler returns the session counters: how many images this
// visitor analyzed and which labels came up, most frequent first.
func GetSessionHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := manager.GetSessionManager().Snapshot(middleware.SessionID(r))

		summary := SessionSummary{
			ImagesAnalyzed:  snapshot.ImagesAnalyzed,
			TotalDetections: snapshot.TotalDetections,
			Counts:          analytics.RankCounts(snapshot.LabelCounts),
		}

		if err := writeJSON(w, http.StatusOK, summary); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// ResetSessionHandler zeroes the visitor's counters.
func ResetSessionHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := middleware.SessionID(r)
		manager.GetSessionManager().Reset(id)
		logger.Info("Session %s counters reset", id)
		w.WriteHeader(http.StatusNoContent)
	}
}
