// Package charts renders the per-label count and breakdown charts
// served next to each analysis.
package charts

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"signserver/internal/analytics"
	"signserver/internal/annotate"
)

const (
	chartHeight      = 420
	minChartWidth    = 480
	barSlot          = 96
	placeholderText  = "No detections"
	placeholderWidth = 480
)

// RenderCounts writes a PNG bar chart of detection counts per label,
// most frequent first. Zero labels produce a placeholder, not an error.
func RenderCounts(w io.Writer, counts []analytics.LabelCount) error {
	if len(counts) == 0 {
		return renderPlaceholder(w)
	}

	bars := make([]chart.Value, 0, len(counts))
	for _, c := range counts {
		bars = append(bars, chart.Value{
			Value: float64(c.Count),
			Label: c.Label,
			Style: barStyle(c.Label),
		})
	}

	width := barSlot*len(bars) + 120
	if width < minChartWidth {
		width = minChartWidth
	}

	graph := chart.BarChart{
		Title:      "Detections per label",
		Width:      width,
		Height:     chartHeight,
		BarWidth:   barSlot - 32,
		BarSpacing: 32,
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		YAxis: chart.YAxis{
			ValueFormatter: chart.IntValueFormatter,
		},
		Bars: bars,
	}

	return graph.Render(chart.PNG, w)
}

// RenderBreakdown writes a PNG pie chart of the percentage share per
// label. Zero labels produce a placeholder, not an error.
func RenderBreakdown(w io.Writer, counts []analytics.LabelCount) error {
	if len(counts) == 0 {
		return renderPlaceholder(w)
	}

	values := make([]chart.Value, 0, len(counts))
	for _, c := range counts {
		values = append(values, chart.Value{
			Value: float64(c.Count),
			Label: fmt.Sprintf("%s %.1f%%", c.Label, c.Percent),
			Style: barStyle(c.Label),
		})
	}

	graph := chart.PieChart{
		Title:  "Label breakdown",
		Width:  chartHeight,
		Height: chartHeight,
		Values: values,
	}

	return graph.Render(chart.PNG, w)
}

// barStyle reuses the annotation palette so chart colors match the
// boxes drawn on the image.
func barStyle(label string) chart.Style {
	c := annotate.Color(label)
	fill := drawing.Color{R: c.R, G: c.G, B: c.B, A: 255}
	return chart.Style{
		FillColor:   fill,
		StrokeColor: fill.WithAlpha(64),
		StrokeWidth: 0,
	}
}

func renderPlaceholder(w io.Writer) error {
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, chartHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 245, G: 245, B: 245, A: 255}), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, placeholderText).Ceil()
	drawer := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 120, G: 120, B: 120, A: 255}),
		Face: face,
		Dot:  fixed.P((placeholderWidth-textWidth)/2, chartHeight/2),
	}
	drawer.DrawString(placeholderText)

	return png.Encode(w, img)
}
