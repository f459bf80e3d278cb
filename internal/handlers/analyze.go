package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"signserver/internal/analytics"
	"signserver/internal/config"
	"signserver/internal/dto"
	"signserver/internal/logger"
	"signserver/internal/middleware"
	"signserver/internal/models"
	"signserver/internal/services"
	"signserver/internal/services/ai"
)

var errInvalidThreshold = errors.New("invalid confidence threshold")

// AnalyzeHandler accepts an uploaded image, runs detection at the
// requested confidence threshold and returns the annotated result with
// its per-label summary.
func AnalyzeHandler(manager *services.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if !manager.EngineReady() {
			writeError(w, http.StatusServiceUnavailable, ai.ErrUnavailable.Error())
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes())
		if err := r.ParseMultipartForm(cfg.MaxUploadBytes()); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "file too large")
				return
			}
			writeError(w, http.StatusBadRequest, "no file uploaded")
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			writeError(w, http.StatusBadRequest, "no file uploaded")
			return
		}
		defer file.Close()

		threshold, err := parseThreshold(r.FormValue("confidence"), cfg.DefaultConfidence)
		if err != nil {
			writeError(w, http.StatusBadRequest, errInvalidThreshold.Error())
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			logger.Error("Failed to read upload %s: %v", header.Filename, err)
			writeError(w, http.StatusBadRequest, "failed to read upload")
			return
		}

		if !validUpload(header.Filename, data) {
			writeError(w, http.StatusBadRequest, "unsupported file type")
			return
		}

		analysis, detections, err := manager.Analyze(r.Context(), services.AnalyzeRequest{
			Data:       data,
			SourceName: header.Filename,
			Threshold:  threshold,
			SessionID:  middleware.SessionID(r),
		})
		if err != nil {
			switch {
			case errors.Is(err, services.ErrBadImage):
				writeError(w, http.StatusBadRequest, "unsupported file type")
			case errors.Is(err, ai.ErrUnavailable):
				writeError(w, http.StatusServiceUnavailable, ai.ErrUnavailable.Error())
			default:
				logger.Error("Analysis of %s failed: %v", header.Filename, err)
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}

		if err := writeJSON(w, http.StatusOK, buildAnalysisResponse(analysis, detections)); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// buildAnalysisResponse assembles the payload the results view renders.
func buildAnalysisResponse(analysis *models.Analysis, detections []models.Detection) dto.AnalysisResponse {
	payloads := make([]dto.DetectionPayload, 0, len(detections))
	for _, det := range detections {
		payloads = append(payloads, dto.DetectionPayload{
			Label:      det.Label,
			Confidence: det.Confidence,
			X:          det.X,
			Y:          det.Y,
			Width:      det.Width,
			Height:     det.Height,
			X2:         det.X2(),
			Y2:         det.Y2(),
		})
	}

	return dto.AnalysisResponse{
		UUID:         analysis.UUID,
		SourceName:   analysis.SourceName,
		Width:        analysis.Width,
		Height:       analysis.Height,
		Threshold:    analysis.Threshold,
		DurationMs:   analysis.DurationMs,
		Detections:   payloads,
		Summary:      analytics.Aggregate(detections),
		AnnotatedURL: "/api/analyses/view?image=" + filepath.Base(analysis.AnnotatedPath),
		ThumbnailURL: "/api/analyses/view?image=" + filepath.Base(analysis.ThumbnailPath),
		CountsChart:  "/api/analyses/chart?uuid=" + analysis.UUID + "&type=counts",
		PieChart:     "/api/analyses/chart?uuid=" + analysis.UUID + "&type=breakdown",
		ReportURL:    "/api/analyses/report?uuid=" + analysis.UUID,
	}
}
