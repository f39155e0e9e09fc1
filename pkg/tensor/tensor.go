// Package tensor builds model input tensors from images and converts tensor
// data between the numeric types an inference server may declare.
package tensor

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

var (
	// ErrShape is returned when a tensor's data does not match its shape.
	ErrShape = errors.New("tensor: data length does not match shape")

	// ErrEmptyImage is returned when building a tensor from an empty image.
	ErrEmptyImage = errors.New("tensor: empty image")
)

// Tensor is a dense row-major float32 tensor.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// New returns a tensor after checking that data fills shape.
func New(shape []int64, data []float32) (*Tensor, error) {
	t := &Tensor{Shape: shape, Data: data}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// NumElements returns the element count implied by Shape.
func (t *Tensor) NumElements() int64 {
	if len(t.Shape) == 0 {
		return 0
	}
	n := int64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Validate checks that Data holds exactly NumElements values.
func (t *Tensor) Validate() error {
	for _, d := range t.Shape {
		if d < 0 {
			return fmt.Errorf("%w: negative dimension in %v", ErrShape, t.Shape)
		}
	}
	if int64(len(t.Data)) != t.NumElements() {
		return fmt.Errorf("%w: shape %v wants %d values, have %d",
			ErrShape, t.Shape, t.NumElements(), len(t.Data))
	}
	return nil
}

// FromImage converts an 8-bit 3-channel image into a (1, 3, H, W) tensor with
// values scaled to [0, 1]. Channel order is kept as stored in img.
func FromImage(img gocv.Mat) (*Tensor, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}
	if img.Channels() != 3 {
		return nil, fmt.Errorf("tensor: expected 3 channels, got %d", img.Channels())
	}

	h, w := img.Rows(), img.Cols()

	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(w, h), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	ptr, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("tensor: read blob: %w", err)
	}

	// The blob owns ptr; copy before it is closed.
	data := make([]float32, len(ptr))
	copy(data, ptr)

	return New([]int64{1, 3, int64(h), int64(w)}, data)
}
