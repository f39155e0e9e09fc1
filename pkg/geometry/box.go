package geometry

import "image"

// Corners is a box given by two opposite corners, as emitted by the detector.
type Corners struct {
	X1, Y1, X2, Y2 float64
}

// Rect is a box given by its top-left corner and size.
type Rect struct {
	X, Y, W, H float64
}

// Rectangle truncates the box to integer pixels for drawing.
func (r Rect) Rectangle() image.Rectangle {
	x, y := int(r.X), int(r.Y)
	return image.Rect(x, y, x+int(r.W), y+int(r.H))
}

// Unproject takes detector boxes in padded model space back to the source
// image frame and converts them to position+size.
//
// The input slice is not modified. Output has the same length and order.
// Boxes are neither clamped to the image nor checked for positive size.
func Unproject(boxes []Corners, padH, padW float64, scale ScaleFactors) []Rect {
	out := make([]Rect, len(boxes))
	for i, b := range boxes {
		x1 := (b.X1 - padW) * scale.W
		y1 := (b.Y1 - padH) * scale.H
		x2 := (b.X2 - padW) * scale.W
		y2 := (b.Y2 - padH) * scale.H
		out[i] = Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
	}
	return out
}

// Project is the forward transform of Unproject: it places a source-image box
// into padded model space for the given layout.
func Project(r Rect, l Layout) Corners {
	s := l.Scale()
	padW, padH := float64(l.LeftPad), float64(l.TopPad)
	return Corners{
		X1: r.X/s.W + padW,
		Y1: r.Y/s.H + padH,
		X2: (r.X+r.W)/s.W + padW,
		Y2: (r.Y+r.H)/s.H + padH,
	}
}
