package dto

// Event is the envelope broadcast to websocket clients when an analysis
// completes.
type Event struct {
	Type     string       `json:"type"`
	Analysis AnalysisInfo `json:"analysis"`
}
