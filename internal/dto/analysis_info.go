package dto

import (
	"encoding/json"
	"time"
)

// AnalysisInfo represents one analysis in the history gallery.
type AnalysisInfo struct {
	UUID           string    `json:"uuid"`
	SourceName     string    `json:"sourceName"`
	Labels         []string  `json:"labels"`
	DetectionCount int       `json:"detectionCount"`
	AvgConfidence  float64   `json:"avgConfidence"`
	Threshold      float64   `json:"threshold"`
	CreatedAt      time.Time `json:"createdAt"`
	ThumbnailURL   string    `json:"thumbnailUrl"`
	AnnotatedURL   string    `json:"annotatedUrl"`
}

// MarshalJSON customizes JSON output for AnalysisInfo to format the creation time.
func (a AnalysisInfo) MarshalJSON() ([]byte, error) {
	type Alias AnalysisInfo
	return json.Marshal(&struct {
		CreatedAt string `json:"createdAt"`
		Alias
	}{
		CreatedAt: a.CreatedAt.Format("02-01-2006 15:04"),
		Alias:     (Alias)(a),
	})
}
