package handlers

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"signserver/internal/analytics"
	"signserver/internal/logger"
	"signserver/internal/report"
	"signserver/internal/services"
)

// ReportHandler builds the downloadable PDF report for one analysis.
func ReportHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("uuid")
		if id == "" {
			writeError(w, http.StatusBadRequest, "uuid parameter is required")
			return
		}

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

		annotated, err := os.ReadFile(analysis.AnnotatedPath)
		if err != nil {
			logger.Error("Failed to read annotated image for %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "failed to read annotated image")
			return
		}
		format := strings.TrimPrefix(filepath.Ext(analysis.AnnotatedPath), ".")

		var buf bytes.Buffer
		if err := report.Generate(&buf, analysis, detections, analytics.Aggregate(detections), annotated, format); err != nil {
			logger.Error("Failed to build report for %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "failed to build report")
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="detection_report_`+id+`.pdf"`)
		if _, err := buf.WriteTo(w); err != nil {
			logger.Error("Failed to write report response: %v", err)
		}
	}
}
