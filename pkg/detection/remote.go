package detection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-yoloface/pkg/geometry"
	"github.com/teslashibe/go-yoloface/pkg/letterbox"
	"github.com/teslashibe/go-yoloface/pkg/tensor"
	"gocv.io/x/gocv"
)

// Remote detects faces by letterboxing the image, sending it to a model
// server and mapping the returned boxes back to source pixels.
type Remote struct {
	gw     Gateway
	config Config
	logger *slog.Logger
}

// NewRemote creates a detector backed by gw.
func NewRemote(gw Gateway, cfg Config) (*Remote, error) {
	if gw == nil {
		return nil, errors.New("detection: nil gateway")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Remote{
		gw:     gw,
		config: cfg,
		logger: logger.With("component", "detection.remote"),
	}, nil
}

// Config returns the detector configuration.
func (r *Remote) Config() Config {
	return r.config
}

// Detect runs one synchronous inference on img. Results are in the same
// order as the model output and are not filtered.
func (r *Remote) Detect(ctx context.Context, img gocv.Mat) ([]Detection, error) {
	if img.Empty() {
		return nil, ErrEmptyImage
	}
	start := time.Now()

	src := img
	if r.config.SwapRB {
		rgb := gocv.NewMat()
		defer rgb.Close()
		gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB)
		src = rgb
	}

	resized, err := letterbox.Resize(src, r.config.InputHeight, r.config.InputWidth, r.config.KeepRatio)
	if err != nil {
		return nil, fmt.Errorf("detection: resize: %w", err)
	}
	defer resized.Close()

	input, err := tensor.FromImage(resized.Image)
	if err != nil {
		return nil, fmt.Errorf("detection: %w", err)
	}

	outputs, err := r.gw.Infer(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("detection: infer: %w", err)
	}

	boxes, scores, err := ParseOutputs(outputs, r.config.BoxesOutput, r.config.ScoresOutput)
	if err != nil {
		return nil, err
	}

	rects := resized.Unproject(boxes)
	dets := make([]Detection, len(rects))
	for i, rect := range rects {
		dets[i] = Detection{X: rect.X, Y: rect.Y, W: rect.W, H: rect.H, Confidence: scores[i]}
	}

	r.logger.Debug("detect",
		"src", fmt.Sprintf("%dx%d", resized.SrcW, resized.SrcH),
		"content", fmt.Sprintf("%dx%d", resized.NewW, resized.NewH),
		"pad_top", resized.TopPad,
		"pad_left", resized.LeftPad,
		"faces", len(dets),
		"latency", time.Since(start))

	return dets, nil
}

// Health reports gateway readiness when the gateway supports it.
func (r *Remote) Health(ctx context.Context) error {
	if h, ok := r.gw.(interface{ Health(context.Context) error }); ok {
		return h.Health(ctx)
	}
	return nil
}

// Close closes the gateway when it holds resources.
func (r *Remote) Close() error {
	if c, ok := r.gw.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// ParseOutputs reads corner-pair boxes and scores from model outputs. The box
// tensor must hold a multiple of four values and one score per box.
func ParseOutputs(outputs map[string]*tensor.Tensor, boxesName, scoresName string) ([]geometry.Corners, []float64, error) {
	boxT, ok := outputs[boxesName]
	if !ok || boxT == nil {
		return nil, nil, fmt.Errorf("%w: missing %q", ErrMalformedOutput, boxesName)
	}
	scoreT, ok := outputs[scoresName]
	if !ok || scoreT == nil {
		return nil, nil, fmt.Errorf("%w: missing %q", ErrMalformedOutput, scoresName)
	}

	if len(boxT.Data)%4 != 0 {
		return nil, nil, fmt.Errorf("%w: %d box values is not a multiple of 4",
			ErrMalformedOutput, len(boxT.Data))
	}
	n := len(boxT.Data) / 4
	if len(scoreT.Data) != n {
		return nil, nil, fmt.Errorf("%w: %d boxes but %d scores",
			ErrMalformedOutput, n, len(scoreT.Data))
	}

	boxes := make([]geometry.Corners, n)
	scores := make([]float64, n)
	for i := 0; i < n; i++ {
		b := boxT.Data[i*4 : i*4+4]
		boxes[i] = geometry.Corners{
			X1: float64(b[0]),
			Y1: float64(b[1]),
			X2: float64(b[2]),
			Y2: float64(b[3]),
		}
		scores[i] = float64(scoreT.Data[i])
	}
	return boxes, scores, nil
}
