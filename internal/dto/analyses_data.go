package dto

// AnalysesData is a paginated response payload for the history gallery.
type AnalysesData struct {
	Analyses    []AnalysisInfo `json:"analyses"`
	ImagesDir   string         `json:"imagesDir"`
	Size        int64          `json:"size"`
	MaxSize     int64          `json:"maxSize"`
	Length      int            `json:"length"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	Limit       int            `json:"pageSize"`
}
