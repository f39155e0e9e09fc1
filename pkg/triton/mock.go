package triton

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-yoloface/pkg/tensor"
)

// Mock stands in for a Client in tests.
type Mock struct {
	// InferFunc is called when Infer is invoked.
	InferFunc func(ctx context.Context, in *tensor.Tensor) (map[string]*tensor.Tensor, error)

	// HealthFunc is called when Health is invoked.
	HealthFunc func(ctx context.Context) error

	mu     sync.Mutex
	calls  []MockCall
	inputs []*tensor.Tensor
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Time   time.Time
}

// NewMock returns a mock that answers every Infer with the given detections:
// boxes as flat corner quadruples and one score per box.
func NewMock(boxes, scores []float32) *Mock {
	return &Mock{
		InferFunc: func(ctx context.Context, in *tensor.Tensor) (map[string]*tensor.Tensor, error) {
			return map[string]*tensor.Tensor{
				"detection_bboxes": {Shape: []int64{int64(len(boxes) / 4), 4}, Data: boxes},
				"detection_scores": {Shape: []int64{int64(len(scores))}, Data: scores},
			}, nil
		},
	}
}

// WithError returns a mock whose calls all fail with err.
func WithError(err error) *Mock {
	return &Mock{
		InferFunc: func(ctx context.Context, in *tensor.Tensor) (map[string]*tensor.Tensor, error) {
			return nil, err
		},
		HealthFunc: func(ctx context.Context) error {
			return err
		},
	}
}

// Infer calls InferFunc and records the call and its input.
func (m *Mock) Infer(ctx context.Context, in *tensor.Tensor) (map[string]*tensor.Tensor, error) {
	m.record("Infer")
	m.mu.Lock()
	m.inputs = append(m.inputs, in)
	m.mu.Unlock()

	if m.InferFunc != nil {
		return m.InferFunc(ctx, in)
	}
	return nil, wrapOp("infer", ErrNotReady)
}

// Health calls HealthFunc and records the call.
func (m *Mock) Health(ctx context.Context) error {
	m.record("Health")
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

// Close records the call.
func (m *Mock) Close() error {
	m.record("Close")
	return nil
}

func (m *Mock) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{Method: method, Time: time.Now()})
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastInput returns the most recent Infer input, or nil if none.
func (m *Mock) LastInput() *tensor.Tensor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inputs) == 0 {
		return nil
	}
	return m.inputs[len(m.inputs)-1]
}

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.inputs = nil
}
