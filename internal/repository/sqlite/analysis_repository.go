package sqlite

import (
	"database/sql"
	"fmt"

	"signserver/internal/dto"
	"signserver/internal/models"
)

const analysisColumns = `a.id, a.uuid, a.source_name, a.original_path, a.annotated_path, a.thumbnail_path,
	a.width, a.height, a.threshold, a.detection_count, a.avg_confidence, a.unique_labels,
	a.duration_ms, a.session_id, a.filesize, a.created_at`

// AnalysisRepository implements repository.AnalysisRepository for SQLite.
type AnalysisRepository struct {
	db *DB
}

// NewAnalysisRepository creates a new SQLite analysis repository.
func NewAnalysisRepository(db *DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Insert adds a new analysis record to the database.
func (r *AnalysisRepository) Insert(a *models.Analysis) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO analyses (uuid, source_name, original_path, annotated_path, thumbnail_path,
			width, height, threshold, detection_count, avg_confidence, unique_labels,
			duration_ms, session_id, filesize, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.UUID, a.SourceName, a.OriginalPath, a.AnnotatedPath, a.ThumbnailPath,
		a.Width, a.Height, a.Threshold, a.DetectionCount, a.AvgConfidence, a.UniqueLabels,
		a.DurationMs, a.SessionID, a.FileSize, a.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis: %w", err)
	}

	return result.LastInsertId()
}

func scanAnalysis(row interface{ Scan(...interface{}) error }) (*models.Analysis, error) {
	var a models.Analysis
	err := row.Scan(&a.ID, &a.UUID, &a.SourceName, &a.OriginalPath, &a.AnnotatedPath, &a.ThumbnailPath,
		&a.Width, &a.Height, &a.Threshold, &a.DetectionCount, &a.AvgConfidence, &a.UniqueLabels,
		&a.DurationMs, &a.SessionID, &a.FileSize, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID retrieves an analysis by its ID.
func (r *AnalysisRepository) GetByID(id int64) (*models.Analysis, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	a, err := scanAnalysis(r.db.Conn().QueryRow(
		`SELECT `+analysisColumns+` FROM analyses a WHERE a.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return a, nil
}

// GetByUUID retrieves an analysis by its public UUID.
func (r *AnalysisRepository) GetByUUID(uuid string) (*models.Analysis, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	a, err := scanAnalysis(r.db.Conn().QueryRow(
		`SELECT `+analysisColumns+` FROM analyses a WHERE a.uuid = ?`, uuid))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return a, nil
}

// buildFilterClause appends WHERE conditions for the given filter.
func buildFilterClause(filter *dto.AnalysisFilters, query string, args []interface{}) (string, []interface{}) {
	if filter.Label != "" {
		query += " AND d.label = ?"
		args = append(args, filter.Label)
	}

	if filter.SessionID != "" {
		query += " AND a.session_id = ?"
		args = append(args, filter.SessionID)
	}

	if !filter.DateAfter.IsZero() {
		query += " AND DATE(a.created_at) >= DATE(?)"
		args = append(args, filter.DateAfter)
	}

	if !filter.DateBefore.IsZero() {
		query += " AND DATE(a.created_at) <= DATE(?)"
		args = append(args, filter.DateBefore)
	}

	if filter.MinDetections > 0 {
		query += " AND a.detection_count >= ?"
		args = append(args, filter.MinDetections)
	}

	return query, args
}

// GetAll retrieves analyses based on filter criteria, newest first.
func (r *AnalysisRepository) GetAll(filter *dto.AnalysisFilters) ([]models.Analysis, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT DISTINCT ` + analysisColumns + `
		FROM analyses a
		LEFT JOIN detections d ON a.id = d.analysis_id
		WHERE 1=1
	`
	args := []interface{}{}
	query, args = buildFilterClause(filter, query, args)

	query += " ORDER BY a.created_at DESC, a.id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var analyses []models.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		analyses = append(analyses, *a)
	}

	return analyses, nil
}

// GetTotalCount returns the total count of analyses matching the filter.
func (r *AnalysisRepository) GetTotalCount(filter *dto.AnalysisFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT COUNT(DISTINCT a.id)
		FROM analyses a
		LEFT JOIN detections d ON a.id = d.analysis_id
		WHERE 1=1
	`
	args := []interface{}{}
	query, args = buildFilterClause(filter, query, args)

	var count int
	if err := r.db.Conn().QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}

	return count, nil
}

// GetOldest returns up to limit analyses ordered oldest first. Used by the
// store janitor when the image directory grows past its cap.
func (r *AnalysisRepository) GetOldest(limit int) ([]models.Analysis, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(
		`SELECT `+analysisColumns+` FROM analyses a ORDER BY a.created_at ASC, a.id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query oldest analyses: %w", err)
	}
	defer rows.Close()

	var analyses []models.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		analyses = append(analyses, *a)
	}

	return analyses, nil
}

// GetStats returns aggregate statistics about stored analyses.
func (r *AnalysisRepository) GetStats() (*models.AnalysisStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &models.AnalysisStats{
		LabelCounts: make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM analyses`).Scan(&stats.TotalAnalyses); err != nil {
		return nil, err
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM detections`).Scan(&stats.TotalDetections); err != nil {
		return nil, err
	}

	if err := r.db.Conn().QueryRow(`SELECT COALESCE(AVG(confidence), 0) FROM detections`).Scan(&stats.AvgConfidence); err != nil {
		return nil, err
	}

	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(filesize), 0) FROM analyses`).Scan(&stats.TotalSizeBytes); err != nil {
		return nil, err
	}

	rows, err := r.db.Conn().Query(`
		SELECT label, COUNT(*) as cnt
		FROM detections
		GROUP BY label
		ORDER BY cnt DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, err
		}
		stats.LabelCounts[label] = count
	}

	return stats, nil
}

// Delete removes an analysis by its ID.
func (r *AnalysisRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	// First delete related detections
	if _, err := r.db.Conn().Exec(`DELETE FROM detections WHERE analysis_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM analyses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	return nil
}

// DeleteAll removes all analyses and their detections.
func (r *AnalysisRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections`); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM analyses`); err != nil {
		return fmt.Errorf("failed to delete analyses: %w", err)
	}

	return nil
}
