package repository

import (
	"signserver/internal/dto"
	"signserver/internal/models"
)

// AnalysisRepository defines the interface for analysis data operations.
type AnalysisRepository interface {
	// Create operations
	Insert(a *models.Analysis) (int64, error)

	// Read operations
	GetByID(id int64) (*models.Analysis, error)
	GetByUUID(uuid string) (*models.Analysis, error)
	GetAll(filter *dto.AnalysisFilters) ([]models.Analysis, error)
	GetTotalCount(filter *dto.AnalysisFilters) (int, error)
	GetOldest(limit int) ([]models.Analysis, error)
	GetStats() (*models.AnalysisStats, error)

	// Delete operations
	Delete(id int64) error
	DeleteAll() error
}

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	// Create operations
	Insert(det *models.Detection) (int64, error)
	InsertBatch(detections []models.Detection) error

	// Read operations
	GetByAnalysisID(analysisID int64) ([]models.Detection, error)
	GetAllLabels() ([]string, error)
	GetLabelCounts() (map[string]int, error)

	// Delete operations
	DeleteByAnalysisID(analysisID int64) error
}
