// Package letterbox resizes images to a fixed detector input while keeping
// their aspect ratio, padding the remainder with black.
package letterbox

import (
	"fmt"
	"image"
	"image/color"

	"github.com/teslashibe/go-yoloface/pkg/geometry"
	"gocv.io/x/gocv"
)

// Result is a resized image together with the layout needed to undo it.
// The caller owns Image and must Close the result.
type Result struct {
	Image gocv.Mat
	geometry.Layout
}

// Close releases the resized image.
func (r *Result) Close() error {
	return r.Image.Close()
}

// Resize fits src into a targetW×targetH canvas. With keepRatio the content
// is scaled with area interpolation and centered on a zero border; otherwise
// it is stretched to fill the target.
func Resize(src gocv.Mat, targetH, targetW int, keepRatio bool) (*Result, error) {
	if src.Empty() {
		return nil, geometry.ErrEmptyImage
	}

	layout, err := geometry.Plan(src.Cols(), src.Rows(), targetW, targetH, keepRatio)
	if err != nil {
		return nil, err
	}

	resized := gocv.NewMat()
	gocv.Resize(src, &resized, image.Pt(layout.NewW, layout.NewH), 0, 0, gocv.InterpolationArea)

	if !layout.Padded() {
		return &Result{Image: resized, Layout: layout}, nil
	}
	defer resized.Close()

	padded := gocv.NewMat()
	gocv.CopyMakeBorder(resized, &padded,
		layout.TopPad, layout.BottomPad(),
		layout.LeftPad, layout.RightPad(),
		gocv.BorderConstant, color.RGBA{0, 0, 0, 0})

	if padded.Rows() != targetH || padded.Cols() != targetW {
		padded.Close()
		return nil, fmt.Errorf("letterbox: got %dx%d, want %dx%d",
			padded.Cols(), padded.Rows(), targetW, targetH)
	}

	return &Result{Image: padded, Layout: layout}, nil
}
