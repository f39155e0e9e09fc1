package detection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gocv.io/x/gocv"
)

// ErrNoDetectors is returned when a chain is built with no backends.
var ErrNoDetectors = errors.New("detection: no detectors")

// ChainError aggregates the failures of every detector in a chain.
type ChainError struct {
	Errors []error
}

func (e *ChainError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("detection chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("detection chain: all %d detectors failed, last error: %v",
		len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap exposes every backend error to errors.Is and errors.As.
func (e *ChainError) Unwrap() []error {
	return e.Errors
}

// Chain tries detectors in order until one succeeds. It is used to fall back
// from a remote model to a local one when the server is unreachable.
type Chain struct {
	detectors []Detector
	logger    *slog.Logger
}

// NewChain creates a detector chain. A nil logger uses slog.Default().
func NewChain(logger *slog.Logger, detectors ...Detector) (*Chain, error) {
	if len(detectors) == 0 {
		return nil, ErrNoDetectors
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		detectors: detectors,
		logger:    logger.With("component", "detection.chain"),
	}, nil
}

// Detect returns the first successful result. Input errors and context
// cancellation stop the chain immediately.
func (c *Chain) Detect(ctx context.Context, img gocv.Mat) ([]Detection, error) {
	var errs []error

	for i, d := range c.detectors {
		dets, err := d.Detect(ctx, img)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback detector succeeded", "index", i)
			}
			return dets, nil
		}

		if errors.Is(err, ErrEmptyImage) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		errs = append(errs, err)
		c.logger.Warn("detector failed, trying next", "index", i, "error", err)
	}

	return nil, &ChainError{Errors: errs}
}

// Health succeeds when at least one detector is healthy. Detectors without
// a Health method count as healthy.
func (c *Chain) Health(ctx context.Context) error {
	var errs []error
	for _, d := range c.detectors {
		h, ok := d.(interface{ Health(context.Context) error })
		if !ok {
			return nil
		}
		if err := h.Health(ctx); err != nil {
			errs = append(errs, err)
			continue
		}
		return nil
	}
	return &ChainError{Errors: errs}
}

// Close closes every detector and returns the last error.
func (c *Chain) Close() error {
	var lastErr error
	for _, d := range c.detectors {
		if err := d.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

var _ Detector = (*Chain)(nil)
