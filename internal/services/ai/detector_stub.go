//go:build !gocv
// +build !gocv

package ai

import (
	"context"

	"signserver/internal/config"
	"signserver/internal/logger"
	"signserver/internal/models"
)

// DetectorService is the placeholder used when the binary is built
// without the gocv tag. Detection always fails with ErrUnavailable;
// every other part of the app keeps working.
type DetectorService struct {
	logger *logger.Logger
}

// NewDetectorService creates the stub detector.
func NewDetectorService(cfg *config.Config, logger *logger.Logger) *DetectorService {
	_ = cfg
	logger.Warning("Built without the gocv tag: detection engine unavailable")
	return &DetectorService{logger: logger}
}

// Ready always reports false for the stub.
func (s *DetectorService) Ready() bool {
	return false
}

// Warmup fails with ErrUnavailable.
func (s *DetectorService) Warmup() error {
	return ErrUnavailable
}

// Detect fails with ErrUnavailable.
func (s *DetectorService) Detect(ctx context.Context, imageBytes []byte, confidence float64) ([]models.Detection, error) {
	_ = ctx
	_ = imageBytes
	_ = confidence
	return nil, ErrUnavailable
}

// Close is a no-op for the stub.
func (s *DetectorService) Close() {}
