// Package annotate draws detection boxes and label tags on images in pure
// Go, so annotation works the same with or without the OpenCV-backed
// detection engine.
package annotate

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"signserver/internal/models"
)

const (
	boxThickness = 3
	tagPadding   = 4
	jpegQuality  = 90
)

// Decode reads an uploaded JPEG or PNG image and reports its format.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// Encode serializes the image. PNG stays PNG, everything else becomes JPEG.
func Encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	if format == "png" {
		err = png.Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Annotate returns a copy of src with a colored box and a label tag drawn
// for every detection. Boxes outside the image are clipped; an empty
// detection list yields an unmarked copy.
func Annotate(src image.Image, detections []models.Detection) *image.RGBA {
	bounds := src.Bounds()
	img := image.NewRGBA(bounds)
	draw.Draw(img, bounds, src, bounds.Min, draw.Src)

	for _, det := range detections {
		col := Color(det.Label)
		box := image.Rect(det.X, det.Y, det.X2(), det.Y2()).Add(bounds.Min)

		drawBox(img, box, col, boxThickness)
		drawTag(img, box, fmt.Sprintf("%s %.1f%%", det.Label, det.Confidence*100), col)
	}

	return img
}

// drawBox draws a rectangle outline of the given thickness, clipped to the
// image bounds.
func drawBox(img *image.RGBA, rect image.Rectangle, col color.RGBA, thickness int) {
	clipped := rect.Intersect(img.Bounds())
	if clipped.Empty() {
		return
	}

	for t := 0; t < thickness; t++ {
		top := rect.Min.Y + t
		bottom := rect.Max.Y - 1 - t
		for x := clipped.Min.X; x < clipped.Max.X; x++ {
			setIfInside(img, x, top, col)
			setIfInside(img, x, bottom, col)
		}

		left := rect.Min.X + t
		right := rect.Max.X - 1 - t
		for y := clipped.Min.Y; y < clipped.Max.Y; y++ {
			setIfInside(img, left, y, col)
			setIfInside(img, right, y, col)
		}
	}
}

func setIfInside(img *image.RGBA, x, y int, col color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.Set(x, y, col)
	}
}

// drawTag draws a filled label above the box, or inside its top edge when
// the box touches the top of the image.
func drawTag(img *image.RGBA, box image.Rectangle, text string, col color.RGBA) {
	face := basicfont.Face7x13
	textWidth := font.MeasureString(face, text).Ceil()
	tagHeight := face.Height + 2*tagPadding
	tagWidth := textWidth + 2*tagPadding

	tag := image.Rect(box.Min.X, box.Min.Y-tagHeight, box.Min.X+tagWidth, box.Min.Y)
	if tag.Min.Y < img.Bounds().Min.Y {
		tag = tag.Add(image.Pt(0, tagHeight+boxThickness))
	}

	draw.Draw(img, tag.Intersect(img.Bounds()), image.NewUniform(col), image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor(col)),
		Face: face,
		Dot:  fixed.P(tag.Min.X+tagPadding, tag.Max.Y-tagPadding-2),
	}
	drawer.DrawString(text)
}
