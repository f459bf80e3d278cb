package handlers

import (
	"bytes"
	"net/http"

	"signserver/internal/analytics"
	"signserver/internal/charts"
	"signserver/internal/logger"
	"signserver/internal/middleware"
	"signserver/internal/services"
)

// ChartHandler renders a counts or breakdown chart as a PNG. The chart
// covers one analysis (?uuid=), the visitor's session (?scope=session)
// or the whole stored history (?scope=all). Empty data gets a
// placeholder image.
func ChartHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		var counts []analytics.LabelCount
		switch {
		case query.Get("uuid") != "":
			id := query.Get("uuid")
			analysis, err := manager.GetAnalysisRepo().GetByUUID(id)
			if err != nil {
				logger.Error("Error loading analysis %s: %v", id, err)
				writeError(w, http.StatusInternalServerError, "failed to load analysis")
				return
			}
			if analysis == nil {
				writeError(w, http.StatusNotFound, "analysis not found")
				return
			}
			detections, err := manager.GetDetectionRepo().GetByAnalysisID(analysis.ID)
			if err != nil {
				logger.Error("Error loading detections for %s: %v", id, err)
				writeError(w, http.StatusInternalServerError, "failed to load detections")
				return
			}
			counts = analytics.Aggregate(detections).Counts

		case query.Get("scope") == "session":
			counts = analytics.RankCounts(manager.GetSessionManager().LabelCounts(middleware.SessionID(r)))

		case query.Get("scope") == "all":
			labelCounts, err := manager.GetDetectionRepo().GetLabelCounts()
			if err != nil {
				logger.Error("Error loading label counts: %v", err)
				writeError(w, http.StatusInternalServerError, "failed to load label counts")
				return
			}
			counts = analytics.RankCounts(labelCounts)

		default:
			writeError(w, http.StatusBadRequest, "uuid or scope parameter is required")
			return
		}

		var buf bytes.Buffer
		var err error
		switch query.Get("type") {
		case "breakdown":
			err = charts.RenderBreakdown(&buf, counts)
		default:
			err = charts.RenderCounts(&buf, counts)
		}
		if err != nil {
			logger.Error("Failed to render chart: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to render chart")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := buf.WriteTo(w); err != nil {
			logger.Error("Failed to write chart response: %v", err)
		}
	}
}
