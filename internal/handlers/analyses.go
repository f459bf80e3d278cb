package handlers

import (
	"net/http"
	"path/filepath"

	"signserver/internal/analytics"
	"signserver/internal/config"
	"signserver/internal/dto"
	"signserver/internal/logger"
	"signserver/internal/middleware"
	"signserver/internal/services"
)

// DisplayAnalysesHandler lists stored analyses, supports filtering and
// pagination. Response is JSON of type AnalysesData.
func DisplayAnalysesHandler(manager *services.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &dto.AnalysisFilters{
			Label:         q.Get("label"),
			DateAfter:     parseDate(q.Get("dateAfter")),
			DateBefore:    parseDate(q.Get("dateBefore")),
			MinDetections: atoiDefault(q.Get("minDetections"), 0),
			Limit:         limit,
			Offset:        (page - 1) * limit,
		}
		if q.Get("scope") == "session" {
			filter.SessionID = middleware.SessionID(r)
		}

		analyses, err := manager.GetAnalysisRepo().GetAll(filter)
		if err != nil {
			logger.Error("Error querying analyses: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to list analyses")
			return
		}

		totalCount, err := manager.GetAnalysisRepo().GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting analyses: %v", err)
			totalCount = len(analyses)
		}

		totalSize, err := manager.GetStoreService().DirectorySize()
		if err != nil {
			logger.Error("Error measuring image directory: %v", err)
		}

		infos := make([]dto.AnalysisInfo, 0, len(analyses))
		for i := range analyses {
			infos = append(infos, manager.AnalysisInfo(&analyses[i], analysisLabels(manager, analyses[i].ID, logger)))
		}

		data := dto.AnalysesData{
			Analyses:    infos,
			ImagesDir:   cfg.ImageDirectory,
			Size:        totalSize,
			MaxSize:     cfg.MaxImageDirectoryBytes(),
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}

		if err := writeJSON(w, http.StatusOK, data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// GetAnalysisHandler returns one stored analysis with its detections,
// summary and asset links.
func GetAnalysisHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
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

		if err := writeJSON(w, http.StatusOK, buildAnalysisResponse(analysis, detections)); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// ViewImageHandler serves a stored image file specified via the "image"
// query parameter.
func ViewImageHandler(manager *services.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		image := r.URL.Query().Get("image")
		if !safeImageName(image) {
			writeError(w, http.StatusBadRequest, "image parameter is required")
			return
		}
		http.ServeFile(w, r, filepath.Join(manager.GetStoreService().Dir(), image))
	}
}

// DeleteAnalysisHandler removes an analysis with its detections and files.
func DeleteAnalysisHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
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

		if err := manager.DeleteAnalysis(analysis); err != nil {
			logger.Error("Failed to delete analysis %s: %v", id, err)
			writeError(w, http.StatusInternalServerError, "failed to delete analysis")
			return
		}

		logger.Info("Deleted analysis: %s", id)
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "uuid": id})
	}
}

// ClearAnalysesHandler wipes the whole history: database rows and images.
func ClearAnalysesHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := manager.ClearAll(); err != nil {
			logger.Error("Error clearing analyses: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to clear analyses")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GetFiltersHandler returns the label values available for filtering.
func GetFiltersHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		labels, err := manager.GetDetectionRepo().GetAllLabels()
		if err != nil {
			logger.Error("Failed to get labels: %v", err)
			labels = []string{}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"labels": labels})
	}
}

// GetStatsHandler returns aggregate statistics over all stored analyses.
func GetStatsHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := manager.GetAnalysisRepo().GetStats()
		if err != nil {
			logger.Error("Failed to get stats: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to retrieve stats")
			return
		}

		writeJSON(w, http.StatusOK, stats)
	}
}

// analysisLabels loads the distinct labels of one analysis for the
// gallery payload. Errors degrade to an empty list.
func analysisLabels(manager *services.Manager, analysisID int64, logger *logger.Logger) []string {
	detections, err := manager.GetDetectionRepo().GetByAnalysisID(analysisID)
	if err != nil {
		logger.Error("Error loading detections for analysis %d: %v", analysisID, err)
		return []string{}
	}

	summary := analytics.Aggregate(detections)
	labels := make([]string, 0, len(summary.Counts))
	for _, c := range summary.Counts {
		labels = append(labels, c.Label)
	}
	return labels
}
