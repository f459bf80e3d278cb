package models

import "time"

// Analysis represents one analyzed upload: the stored image files plus
// the metrics computed from its detections.
type Analysis struct {
	ID             int64     `json:"id"`
	UUID           string    `json:"uuid"`
	SourceName     string    `json:"source_name"`
	OriginalPath   string    `json:"original_path"`
	AnnotatedPath  string    `json:"annotated_path"`
	ThumbnailPath  string    `json:"thumbnail_path"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	Threshold      float64   `json:"threshold"`
	DetectionCount int       `json:"detection_count"`
	AvgConfidence  float64   `json:"avg_confidence"`
	UniqueLabels   int       `json:"unique_labels"`
	DurationMs     int64     `json:"duration_ms"`
	SessionID      string    `json:"session_id"`
	FileSize       int64     `json:"filesize"`
	CreatedAt      time.Time `json:"created_at"`
}

// AnalysisStats contains aggregate statistics across all stored analyses.
type AnalysisStats struct {
	TotalAnalyses   int            `json:"total_analyses"`
	TotalDetections int            `json:"total_detections"`
	AvgConfidence   float64        `json:"avg_confidence"`
	TotalSizeBytes  int64          `json:"total_size_bytes"`
	LabelCounts     map[string]int `json:"label_counts"`
}
