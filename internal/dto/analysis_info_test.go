package dto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestAnalysisInfo_MarshalJSON(t *testing.T) {
	info := AnalysisInfo{
		UUID:           "abc-123",
		SourceName:     "crossing.jpg",
		Labels:         []string{"stop", "yield"},
		DetectionCount: 2,
		AvgConfidence:  0.87,
		Threshold:      0.25,
		CreatedAt:      time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		ThumbnailURL:   "/api/analyses/view?image=thumb.jpg",
	}

	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	if !strings.Contains(string(data), `"createdAt":"14-03-2026 09:30"`) {
		t.Errorf("Expected formatted createdAt, got %s", data)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if decoded["uuid"] != "abc-123" {
		t.Errorf("Expected uuid abc-123, got %v", decoded["uuid"])
	}
	if decoded["detectionCount"] != float64(2) {
		t.Errorf("Expected detectionCount 2, got %v", decoded["detectionCount"])
	}
}
