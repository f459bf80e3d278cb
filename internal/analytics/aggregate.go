// Package analytics turns raw detection lists into the ranked summaries
// shown in the results table, the charts and the session counters.
package analytics

import (
	"slices"
	"strings"

	"signserver/internal/models"
)

// LabelCount is one row of the per-label breakdown.
type LabelCount struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Summary holds the aggregate metrics of one detection list.
type Summary struct {
	Total         int          `json:"total"`
	AvgConfidence float64      `json:"avgConfidence"`
	UniqueLabels  int          `json:"uniqueLabels"`
	Counts        []LabelCount `json:"counts"`
}

// Aggregate computes per-label counts, the percentage breakdown and the
// average confidence of a detection list. Counts are ranked most frequent
// first, ties alphabetically. An empty list yields a zero-valued Summary.
func Aggregate(detections []models.Detection) Summary {
	summary := Summary{Counts: []LabelCount{}}
	if len(detections) == 0 {
		return summary
	}

	counts := make(map[string]int)
	var confidenceSum float64
	for _, det := range detections {
		counts[det.Label]++
		confidenceSum += det.Confidence
	}

	summary.Total = len(detections)
	summary.AvgConfidence = confidenceSum / float64(len(detections))
	summary.UniqueLabels = len(counts)
	summary.Counts = RankCounts(counts)
	return summary
}

// RankCounts converts a label->count map into LabelCount rows ranked most
// frequent first, ties alphabetically. Percentages are relative to the sum
// of all counts.
func RankCounts(counts map[string]int) []LabelCount {
	ranked := make([]LabelCount, 0, len(counts))

	total := 0
	for _, count := range counts {
		total += count
	}
	if total == 0 {
		return ranked
	}

	for label, count := range counts {
		ranked = append(ranked, LabelCount{
			Label:   label,
			Count:   count,
			Percent: float64(count) / float64(total) * 100,
		})
	}

	slices.SortFunc(ranked, func(a, b LabelCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Label, b.Label)
	})

	return ranked
}

// Filter returns the detections whose confidence is at least minConfidence.
// The input order is preserved.
func Filter(detections []models.Detection, minConfidence float64) []models.Detection {
	filtered := make([]models.Detection, 0, len(detections))
	for _, det := range detections {
		if det.Confidence >= minConfidence {
			filtered = append(filtered, det)
		}
	}
	return filtered
}
