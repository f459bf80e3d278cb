package dto

import "signserver/internal/analytics"

// AnalysisResponse is the payload returned by the analyze endpoint.
type AnalysisResponse struct {
	UUID         string             `json:"uuid"`
	SourceName   string             `json:"sourceName"`
	Width        int                `json:"width"`
	Height       int                `json:"height"`
	Threshold    float64            `json:"threshold"`
	DurationMs   int64              `json:"durationMs"`
	Detections   []DetectionPayload `json:"detections"`
	Summary      analytics.Summary  `json:"summary"`
	AnnotatedURL string             `json:"annotatedUrl"`
	ThumbnailURL string             `json:"thumbnailUrl"`
	CountsChart  string             `json:"countsChartUrl"`
	PieChart     string             `json:"breakdownChartUrl"`
	ReportURL    string             `json:"reportUrl"`
}
