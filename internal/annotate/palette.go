package annotate

import (
	"hash/fnv"
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color returns the box color for a label. The hue is derived from a hash
// of the label, so the same sign type gets the same color in every image
// and in the charts.
func Color(label string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(label))
	hue := float64(h.Sum32() % 360)

	c := colorful.Hsv(hue, 0.68, 0.92)
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// textColor picks black or white for readable text on the given background.
func textColor(bg color.RGBA) color.RGBA {
	luminance := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if luminance > 186 {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: 255, G: 255, B: 255, A: 255}
}
