// Package detection finds faces in images and reports them in source-image
// pixel coordinates.
package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/teslashibe/go-yoloface/pkg/geometry"
	"github.com/teslashibe/go-yoloface/pkg/tensor"
	"gocv.io/x/gocv"
)

var (
	// ErrEmptyImage is returned when an image has no pixels or cannot be decoded.
	ErrEmptyImage = errors.New("detection: empty image")

	// ErrMalformedOutput is returned when model outputs are missing or inconsistent.
	ErrMalformedOutput = errors.New("detection: malformed model output")
)

// Detection is a detected face in image-space pixels.
type Detection struct {
	X, Y       float64 // Top-left corner
	W, H       float64 // Width and height
	Confidence float64 // Detection score as reported by the model
}

// Center returns the center point of the detection.
func (d Detection) Center() (x, y float64) {
	return d.X + d.W/2, d.Y + d.H/2
}

// Area returns the area of the bounding box.
func (d Detection) Area() float64 {
	return d.W * d.H
}

// Rectangle returns the box truncated to integer pixels.
func (d Detection) Rectangle() image.Rectangle {
	return geometry.Rect{X: d.X, Y: d.Y, W: d.W, H: d.H}.Rectangle()
}

// Detector is the interface for face detection backends.
type Detector interface {
	// Detect finds faces in a BGR image.
	Detect(ctx context.Context, img gocv.Mat) ([]Detection, error)

	// Close releases resources.
	Close() error
}

// Gateway runs a single inference request against a model server.
type Gateway interface {
	Infer(ctx context.Context, in *tensor.Tensor) (map[string]*tensor.Tensor, error)
}

// Config holds remote detector configuration.
type Config struct {
	InputWidth   int    // Model input width
	InputHeight  int    // Model input height
	KeepRatio    bool   // Letterbox instead of stretching
	SwapRB       bool   // Convert BGR input to RGB before inference
	BoxesOutput  string // Output tensor holding corner-pair boxes
	ScoresOutput string // Output tensor holding per-box scores
	Logger       *slog.Logger
}

// DefaultConfig returns defaults for a 640x640 YOLOv8n-face model.
func DefaultConfig() Config {
	return Config{
		InputWidth:   640,
		InputHeight:  640,
		KeepRatio:    true,
		SwapRB:       true,
		BoxesOutput:  "detection_bboxes",
		ScoresOutput: "detection_scores",
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.InputWidth <= 0 || c.InputHeight <= 0 {
		return fmt.Errorf("detection: invalid input size %dx%d", c.InputWidth, c.InputHeight)
	}
	if c.BoxesOutput == "" || c.ScoresOutput == "" {
		return errors.New("detection: output names required")
	}
	return nil
}

// DecodeImage decodes an encoded image (JPEG, PNG, ...) into a BGR Mat.
// On success the caller must Close the result.
func DecodeImage(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.Mat{}, ErrEmptyImage
	}
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: %v", ErrEmptyImage, err)
	}
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, ErrEmptyImage
	}
	return img, nil
}

// FilterByConfidence returns the detections scoring at least minScore, in order.
func FilterByConfidence(dets []Detection, minScore float64) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence >= minScore {
			out = append(out, d)
		}
	}
	return out
}

// SelectBest picks the most prominent face.
// Priority: confidence * 0.7 + relative area * 0.3.
func SelectBest(dets []Detection) *Detection {
	if len(dets) == 0 {
		return nil
	}

	if len(dets) == 1 {
		return &dets[0]
	}

	maxArea := 0.0
	for _, d := range dets {
		if d.Area() > maxArea {
			maxArea = d.Area()
		}
	}

	bestScore := -1.0
	var best *Detection

	for i := range dets {
		score := dets[i].Confidence * 0.7
		if maxArea > 0 {
			score += (dets[i].Area() / maxArea) * 0.3
		}
		if score > bestScore {
			bestScore = score
			best = &dets[i]
		}
	}

	return best
}
