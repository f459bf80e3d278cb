package dto

// DetectionPayload is the wire shape of a single detection. Both the
// width/height form and the corner form are included so the frontend
// and the PDF report do not have to recompute them.
type DetectionPayload struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
}
