// Package report builds the downloadable PDF summary for one analysis.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	"signserver/internal/analytics"
	"signserver/internal/models"
)

const (
	title          = "Traffic Sign Detection Report"
	maxImageHeight = 120.0
)

// Generate writes the PDF report for an analysis: summary figures, the
// annotated image and one table row per detection.
func Generate(w io.Writer, analysis *models.Analysis, detections []models.Detection, summary analytics.Summary, annotated []byte, format string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentW := pageW - left - right

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 6, fmt.Sprintf("%s, analyzed %s", analysis.SourceName, analysis.CreatedAt.Format("02-01-2006 15:04")), "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	writeSummary(pdf, analysis, summary)
	pdf.Ln(4)

	opts := fpdf.ImageOptions{ImageType: imageType(format)}
	info := pdf.RegisterImageOptionsReader("annotated", opts, bytes.NewReader(annotated))
	if pdf.Ok() && info.Width() > 0 {
		imgW := contentW
		imgH := imgW * info.Height() / info.Width()
		if imgH > maxImageHeight {
			imgH = maxImageHeight
			imgW = 0
		}
		pdf.ImageOptions("annotated", left, pdf.GetY(), imgW, imgH, true, opts, 0, "")
		pdf.Ln(6)
	}

	if len(detections) == 0 {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.CellFormat(0, 8, "No traffic signs were detected above the threshold.", "", 1, "L", false, 0, "")
		return pdf.Output(w)
	}

	writeDetectionTable(pdf, detections)
	pdf.Ln(4)
	writeLabelSummary(pdf, summary)

	return pdf.Output(w)
}

func writeSummary(pdf *fpdf.Fpdf, analysis *models.Analysis, summary analytics.Summary) {
	rows := [][2]string{
		{"Detections", strconv.Itoa(summary.Total)},
		{"Average confidence", fmt.Sprintf("%.1f%%", summary.AvgConfidence*100)},
		{"Unique sign types", strconv.Itoa(summary.UniqueLabels)},
		{"Confidence threshold", fmt.Sprintf("%.2f", analysis.Threshold)},
		{"Processing time", fmt.Sprintf("%d ms", analysis.DurationMs)},
		{"Image size", fmt.Sprintf("%d x %d px", analysis.Width, analysis.Height)},
	}

	pdf.SetFont("Helvetica", "", 11)
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(55, 7, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 7, row[1], "", 1, "L", false, 0, "")
	}
}

func writeDetectionTable(pdf *fpdf.Fpdf, detections []models.Detection) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 9, "Detections", "", 1, "L", false, 0, "")

	pdf.SetFillColor(230, 230, 230)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(12, 7, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(82, 7, "Label", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Confidence", "1", 0, "C", true, 0, "")
	pdf.CellFormat(66, 7, "Box [x1, y1, x2, y2]", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for i, det := range detections {
		box := fmt.Sprintf("[%d, %d, %d, %d]", det.X, det.Y, det.X2(), det.Y2())
		pdf.CellFormat(12, 6, strconv.Itoa(i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(82, 6, det.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.1f%%", det.Confidence*100), "1", 0, "C", false, 0, "")
		pdf.CellFormat(66, 6, box, "1", 1, "C", false, 0, "")
	}
}

func writeLabelSummary(pdf *fpdf.Fpdf, summary analytics.Summary) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 9, "Label summary", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, c := range summary.Counts {
		line := fmt.Sprintf("%s: %d (%.1f%%)", c.Label, c.Count, c.Percent)
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
}

func imageType(format string) string {
	if strings.EqualFold(format, "png") {
		return "PNG"
	}
	return "JPEG"
}
