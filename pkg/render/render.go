// Package render draws face detections onto images.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/teslashibe/go-yoloface/pkg/detection"
	"gocv.io/x/gocv"
)

// ErrEmptyImage is returned when there is nothing to draw on or encode.
var ErrEmptyImage = errors.New("render: empty image")

// Options controls box and label appearance.
type Options struct {
	Color         color.RGBA
	Thickness     int
	FontScale     float64
	FontThickness int
	Label         string // Prefix before the score
}

// DefaultOptions draws red boxes labeled "face:<score>".
func DefaultOptions() Options {
	return Options{
		Color:         color.RGBA{R: 255, A: 255},
		Thickness:     3,
		FontScale:     1,
		FontThickness: 2,
		Label:         "face",
	}
}

// Label returns the text drawn above a detection. The score is rounded to
// two decimals and printed without trailing zeros, keeping one digit after
// the point: 0.9 renders as "face:0.9" and 1 as "face:1.0".
func Label(prefix string, confidence float64) string {
	s := strconv.FormatFloat(math.Round(confidence*100)/100, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return prefix + ":" + s
}

// Draw draws each detection in place on img. Boxes with no width or height
// are skipped. It returns the number of boxes drawn.
func Draw(img *gocv.Mat, dets []detection.Detection, opts Options) (int, error) {
	if img == nil || img.Empty() {
		return 0, ErrEmptyImage
	}

	drawn := 0
	for _, d := range dets {
		if d.W <= 0 || d.H <= 0 {
			continue
		}
		r := d.Rectangle()
		gocv.Rectangle(img, r, opts.Color, opts.Thickness)
		gocv.PutText(img, Label(opts.Label, d.Confidence),
			image.Pt(r.Min.X, r.Min.Y-5),
			gocv.FontHersheySimplex, opts.FontScale, opts.Color, opts.FontThickness)
		drawn++
	}
	return drawn, nil
}

// EncodeJPEG encodes img as JPEG bytes.
func EncodeJPEG(img gocv.Mat) ([]byte, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("render: encode jpeg: %w", err)
	}
	defer buf.Close()

	// buf owns the bytes; copy before it is closed.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
