package dto

import "time"

// AnalysisFilters describe user-provided filters to narrow the analysis list.
type AnalysisFilters struct {
	Label         string
	SessionID     string
	DateAfter     time.Time
	DateBefore    time.Time
	MinDetections int
	Limit         int
	Offset        int
}
