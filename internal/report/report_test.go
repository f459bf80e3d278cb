package report

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"signserver/internal/analytics"
	"signserver/internal/models"
)

func testAnalysis() *models.Analysis {
	return &models.Analysis{
		UUID:           "9f2d6f0a-0000-0000-0000-000000000000",
		SourceName:     "crossing.jpg",
		Width:          200,
		Height:         150,
		Threshold:      0.25,
		DetectionCount: 2,
		AvgConfidence:  0.8,
		UniqueLabels:   2,
		DurationMs:     42,
		CreatedAt:      time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func testAnnotatedJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 150))
	for y := 0; y < 150; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.RGBA{R: 90, G: 90, B: 90, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestGenerate_ProducesPDF(t *testing.T) {
	detections := []models.Detection{
		{Label: "stop", Confidence: 0.9, X: 10, Y: 10, Width: 40, Height: 40},
		{Label: "yield", Confidence: 0.7, X: 80, Y: 30, Width: 50, Height: 45},
	}

	var buf bytes.Buffer
	err := Generate(&buf, testAnalysis(), detections, analytics.Aggregate(detections), testAnnotatedJPEG(t), "jpeg")
	if err != nil {
		t.Fatalf("Failed to generate report: %v", err)
	}

	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("Report does not start with the PDF header")
	}
	if buf.Len() < 1000 {
		t.Errorf("Report suspiciously small: %d bytes", buf.Len())
	}
}

func TestGenerate_ZeroDetections(t *testing.T) {
	analysis := testAnalysis()
	analysis.DetectionCount = 0
	analysis.AvgConfidence = 0
	analysis.UniqueLabels = 0

	var buf bytes.Buffer
	err := Generate(&buf, analysis, nil, analytics.Aggregate(nil), testAnnotatedJPEG(t), "jpeg")
	if err != nil {
		t.Fatalf("Report for zero detections should not error: %v", err)
	}

	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("Report does not start with the PDF header")
	}
}
