// Package geometry holds the coordinate math shared by the letterbox resizer
// and the detection post-processing: where scaled content sits inside the
// fixed model input, and how to map boxes from model space back to the
// source image.
package geometry

import (
	"errors"
	"math"
)

var (
	// ErrEmptyImage is returned when the source image has no pixels.
	ErrEmptyImage = errors.New("geometry: empty image")

	// ErrInvalidTarget is returned when the model input size is not positive.
	ErrInvalidTarget = errors.New("geometry: invalid target size")
)

// Layout describes how a source image is embedded in the model input canvas.
type Layout struct {
	SrcW, SrcH       int // Source image size
	TargetW, TargetH int // Model input size
	NewW, NewH       int // Scaled content size before padding
	TopPad, LeftPad  int // Offset of the content inside the canvas
}

// Plan computes the letterbox layout for a srcW×srcH image fitted into a
// targetW×targetH canvas.
//
// With keepRatio unset, or for a square source, the image is stretched to the
// full target and no padding is used. Otherwise the longer side is pinned to
// the target and the shorter side is padded symmetrically, the odd pixel going
// to the bottom/right.
func Plan(srcW, srcH, targetW, targetH int, keepRatio bool) (Layout, error) {
	if srcW <= 0 || srcH <= 0 {
		return Layout{}, ErrEmptyImage
	}
	if targetW <= 0 || targetH <= 0 {
		return Layout{}, ErrInvalidTarget
	}

	l := Layout{
		SrcW:    srcW,
		SrcH:    srcH,
		TargetW: targetW,
		TargetH: targetH,
		NewW:    targetW,
		NewH:    targetH,
	}

	if !keepRatio || srcW == srcH {
		return l, nil
	}

	hwScale := float64(srcH) / float64(srcW)
	if hwScale > 1 {
		l.NewW = atLeastOne(int(math.Round(float64(targetW) / hwScale)))
		l.LeftPad = int(float64(targetW-l.NewW) * 0.5)
	} else {
		l.NewH = atLeastOne(int(math.Round(float64(targetH) * hwScale)))
		l.TopPad = int(float64(targetH-l.NewH) * 0.5)
	}
	return l, nil
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// BottomPad returns the rows of padding below the content.
func (l Layout) BottomPad() int {
	return l.TargetH - l.NewH - l.TopPad
}

// RightPad returns the columns of padding right of the content.
func (l Layout) RightPad() int {
	return l.TargetW - l.NewW - l.LeftPad
}

// Padded reports whether the layout letterboxes the content.
func (l Layout) Padded() bool {
	return l.NewW != l.TargetW || l.NewH != l.TargetH
}

// Scale returns the factors that take content-relative model coordinates
// back to source pixels.
func (l Layout) Scale() ScaleFactors {
	return ScaleFactors{
		H: float64(l.SrcH) / float64(l.NewH),
		W: float64(l.SrcW) / float64(l.NewW),
	}
}

// Unproject maps model-space corner boxes to source-image position+size boxes
// using this layout's padding and scale.
func (l Layout) Unproject(boxes []Corners) []Rect {
	return Unproject(boxes, float64(l.TopPad), float64(l.LeftPad), l.Scale())
}

// ScaleFactors converts scaled-content coordinates to source pixels.
type ScaleFactors struct {
	H, W float64
}
