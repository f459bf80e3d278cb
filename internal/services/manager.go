package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"signserver/internal/analytics"
	"signserver/internal/annotate"
	"signserver/internal/config"
	"signserver/internal/dto"
	"signserver/internal/logger"
	"signserver/internal/models"
	"signserver/internal/monitor"
	"signserver/internal/repository"
	"signserver/internal/services/storage"
	"signserver/internal/services/websocket"
	"signserver/internal/session"
)

// ErrBadImage marks uploads that cannot be decoded as an image.
var ErrBadImage = errors.New("unsupported file type")

// Detector runs the object detection model on encoded image bytes.
// The gocv build provides the real network, the default build a stub.
type Detector interface {
	Detect(ctx context.Context, imageBytes []byte, confidence float64) ([]models.Detection, error)
	Ready() bool
	Warmup() error
	Close()
}

// AnalyzeRequest is one upload to run through the pipeline.
type AnalyzeRequest struct {
	Data       []byte
	SourceName string
	Threshold  float64
	SessionID  string
}

// Manager owns the analysis pipeline and the services it is built from.
type Manager struct {
	detector         Detector
	storeService     *storage.StoreService
	websocketService *websocket.HubService
	sessionManager   *session.Manager
	analysisRepo     repository.AnalysisRepository
	detectionRepo    repository.DetectionRepository
	monitor          *monitor.Monitor
	maxDirBytes      int64
	logger           *logger.Logger
}

func NewManager(
	detector Detector,
	storeService *storage.StoreService,
	websocketService *websocket.HubService,
	sessionManager *session.Manager,
	analysisRepo repository.AnalysisRepository,
	detectionRepo repository.DetectionRepository,
	mon *monitor.Monitor,
	config *config.Config,
	logger *logger.Logger,
) *Manager {
	manager := &Manager{
		detector:         detector,
		storeService:     storeService,
		websocketService: websocketService,
		sessionManager:   sessionManager,
		analysisRepo:     analysisRepo,
		detectionRepo:    detectionRepo,
		monitor:          mon,
		maxDirBytes:      config.MaxImageDirectoryBytes(),
		logger:           logger,
	}

	manager.logger.Info("🚦 Analysis manager ready (engine ready: %v)", detector.Ready())
	return manager
}

// Analyze runs one upload through the full pipeline: decode, detect,
// annotate, store, persist, then update session counters and notify
// websocket clients. The stored analysis and its detections are returned
// ordered by confidence, highest first.
func (m *Manager) Analyze(ctx context.Context, req AnalyzeRequest) (*models.Analysis, []models.Detection, error) {
	start := time.Now()

	img, format, err := annotate.Decode(req.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}

	detections, err := m.detector.Detect(ctx, req.Data, req.Threshold)
	if err != nil {
		m.monitor.RecordError()
		return nil, nil, fmt.Errorf("detection failed: %w", err)
	}

	annotated := annotate.Annotate(img, detections)
	annotatedBytes, err := annotate.Encode(annotated, format)
	if err != nil {
		m.monitor.RecordError()
		return nil, nil, fmt.Errorf("failed to encode annotated image: %w", err)
	}

	id := uuid.NewString()
	files, err := m.storeService.SaveAnalysis(id, req.Data, annotatedBytes, annotated, format)
	if err != nil {
		m.monitor.RecordError()
		return nil, nil, fmt.Errorf("failed to store analysis images: %w", err)
	}

	summary := analytics.Aggregate(detections)
	duration := time.Since(start)

	analysis := &models.Analysis{
		UUID:           id,
		SourceName:     req.SourceName,
		OriginalPath:   files.OriginalPath,
		AnnotatedPath:  files.AnnotatedPath,
		ThumbnailPath:  files.ThumbnailPath,
		Width:          img.Bounds().Dx(),
		Height:         img.Bounds().Dy(),
		Threshold:      req.Threshold,
		DetectionCount: summary.Total,
		AvgConfidence:  summary.AvgConfidence,
		UniqueLabels:   summary.UniqueLabels,
		DurationMs:     duration.Milliseconds(),
		SessionID:      req.SessionID,
		FileSize:       files.TotalBytes,
		CreatedAt:      time.Now(),
	}

	analysisID, err := m.analysisRepo.Insert(analysis)
	if err != nil {
		m.storeService.Remove(files.OriginalPath, files.AnnotatedPath, files.ThumbnailPath)
		m.monitor.RecordError()
		return nil, nil, fmt.Errorf("failed to save analysis: %w", err)
	}
	analysis.ID = analysisID

	for i := range detections {
		detections[i].AnalysisID = analysisID
	}
	if len(detections) > 0 {
		if err := m.detectionRepo.InsertBatch(detections); err != nil {
			m.monitor.RecordError()
			return nil, nil, fmt.Errorf("failed to save detections: %w", err)
		}
	}

	m.sessionManager.RecordAnalysis(req.SessionID, detections)
	m.monitor.RecordAnalysis(len(detections), duration)
	m.notifyClients(analysis, summary)

	m.logger.Info("Analyzed %s: %d detection(s) in %dms", req.SourceName, summary.Total, duration.Milliseconds())
	return analysis, detections, nil
}

// DeleteAnalysis removes one analysis, its detections and its files.
func (m *Manager) DeleteAnalysis(analysis *models.Analysis) error {
	if err := m.detectionRepo.DeleteByAnalysisID(analysis.ID); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	if err := m.analysisRepo.Delete(analysis.ID); err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	m.storeService.Remove(analysis.OriginalPath, analysis.AnnotatedPath, analysis.ThumbnailPath)
	return nil
}

// ClearAll wipes every stored analysis and image.
func (m *Manager) ClearAll() error {
	if err := m.analysisRepo.DeleteAll(); err != nil {
		return fmt.Errorf("failed to clear analyses: %w", err)
	}
	return m.storeService.Clear()
}

// AnalysisInfo builds the gallery payload broadcast to websocket clients
// and returned by the history endpoints.
func (m *Manager) AnalysisInfo(analysis *models.Analysis, labels []string) dto.AnalysisInfo {
	if labels == nil {
		labels = []string{}
	}
	return dto.AnalysisInfo{
		UUID:           analysis.UUID,
		SourceName:     analysis.SourceName,
		Labels:         labels,
		DetectionCount: analysis.DetectionCount,
		AvgConfidence:  analysis.AvgConfidence,
		Threshold:      analysis.Threshold,
		CreatedAt:      analysis.CreatedAt,
		ThumbnailURL:   "/api/analyses/view?image=" + filepath.Base(analysis.ThumbnailPath),
		AnnotatedURL:   "/api/analyses/view?image=" + filepath.Base(analysis.AnnotatedPath),
	}
}

func (m *Manager) notifyClients(analysis *models.Analysis, summary analytics.Summary) {
	labels := make([]string, 0, len(summary.Counts))
	for _, c := range summary.Counts {
		labels = append(labels, c.Label)
	}
	m.websocketService.Broadcast(dto.Event{Type: "analysis", Analysis: m.AnalysisInfo(analysis, labels)})
}

// EngineReady reports whether the detection network is loaded.
func (m *Manager) EngineReady() bool {
	return m.detector.Ready()
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.websocketService
}
func (m *Manager) GetStoreService() *storage.StoreService {
	return m.storeService
}
func (m *Manager) GetSessionManager() *session.Manager {
	return m.sessionManager
}
func (m *Manager) GetAnalysisRepo() repository.AnalysisRepository {
	return m.analysisRepo
}
func (m *Manager) GetDetectionRepo() repository.DetectionRepository {
	return m.detectionRepo
}

// RunCleanup prunes the oldest analyses whenever the image directory
// grows past the configured cap. Meant to run as a goroutine.
func (m *Manager) RunCleanup(intervalSeconds int) {
	if m.maxDirBytes <= 0 {
		return
	}

	ticker := time.NewTicker(time.Duration(intervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		<-ticker.C
		m.enforceDirectoryCap()
	}
}

func (m *Manager) enforceDirectoryCap() {
	size, err := m.storeService.DirectorySize()
	if err != nil {
		m.logger.Error("Failed to measure image directory: %v", err)
		return
	}
	if size <= m.maxDirBytes {
		return
	}

	m.logger.Warning("⚠️  Image directory at %d MB exceeds cap of %d MB, pruning oldest analyses",
		size>>20, m.maxDirBytes>>20)

	for size > m.maxDirBytes {
		oldest, err := m.analysisRepo.GetOldest(10)
		if err != nil {
			m.logger.Error("Failed to list oldest analyses: %v", err)
			return
		}
		if len(oldest) == 0 {
			return
		}

		for i := range oldest {
			if err := m.DeleteAnalysis(&oldest[i]); err != nil {
				m.logger.Error("Failed to prune analysis %s: %v", oldest[i].UUID, err)
				return
			}
			m.logger.Info("Pruned analysis %s (%d bytes)", oldest[i].UUID, oldest[i].FileSize)
		}

		size, err = m.storeService.DirectorySize()
		if err != nil {
			m.logger.Error("Failed to measure image directory: %v", err)
			return
		}
	}
}

// Close shuts down the detection engine.
func (m *Manager) Close() {
	m.detector.Close()
	m.logger.Info("🛑 Analysis manager stopped")
}
