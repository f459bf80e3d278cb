package sqlite

import (
	"fmt"

	"signserver/internal/models"
)

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository returns a detection repository backed by db.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// Insert stores a single detection row.
func (r *DetectionRepository) Insert(det *models.Detection) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO detections (analysis_id, label, confidence, x, y, width, height)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, det.AnalysisID, det.Label, det.Confidence, det.X, det.Y, det.Width, det.Height)
	if err != nil {
		return 0, fmt.Errorf("failed to insert detection: %w", err)
	}

	return result.LastInsertId()
}

// InsertBatch writes a detection list in one transaction.
func (r *DetectionRepository) InsertBatch(detections []models.Detection) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO detections (analysis_id, label, confidence, x, y, width, height)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, det := range detections {
		if _, err := stmt.Exec(det.AnalysisID, det.Label, det.Confidence, det.X, det.Y, det.Width, det.Height); err != nil {
			return fmt.Errorf("failed to insert detection: %w", err)
		}
	}

	return tx.Commit()
}

// GetByAnalysisID retrieves all detections for an analysis.
func (r *DetectionRepository) GetByAnalysisID(analysisID int64) ([]models.Detection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, analysis_id, label, confidence, x, y, width, height
		FROM detections WHERE analysis_id = ? ORDER BY confidence DESC
	`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var detections []models.Detection
	for rows.Next() {
		var det models.Detection
		if err := rows.Scan(&det.ID, &det.AnalysisID, &det.Label, &det.Confidence, &det.X, &det.Y, &det.Width, &det.Height); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, det)
	}

	return detections, nil
}

// GetAllLabels returns a list of all unique detected labels.
func (r *DetectionRepository) GetAllLabels() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT DISTINCT label FROM detections ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, label)
	}

	return labels, nil
}

// GetLabelCounts returns the number of detections per label across all
// analyses.
func (r *DetectionRepository) GetLabelCounts() (map[string]int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT label, COUNT(*) FROM detections GROUP BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to query label counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("failed to scan label count: %w", err)
		}
		counts[label] = count
	}

	return counts, nil
}

// DeleteByAnalysisID removes all detections for a specific analysis.
func (r *DetectionRepository) DeleteByAnalysisID(analysisID int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections WHERE analysis_id = ?`, analysisID); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	return nil
}
