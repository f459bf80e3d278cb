package models

// Detection represents a detected traffic sign in an analyzed image.
type Detection struct {
	ID         int64   `json:"id"`
	AnalysisID int64   `json:"analysis_id"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// X2 returns the right edge of the bounding box.
func (d Detection) X2() int {
	return d.X + d.Width
}

// Y2 returns the bottom edge of the bounding box.
func (d Detection) Y2() int {
	return d.Y + d.Height
}
