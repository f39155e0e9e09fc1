package detection

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"
)

func TestDetection_Center(t *testing.T) {
	tests := []struct {
		name    string
		det     Detection
		expectX float64
		expectY float64
	}{
		{
			name:    "origin box",
			det:     Detection{X: 0, Y: 0, W: 100, H: 50},
			expectX: 50,
			expectY: 25,
		},
		{
			name:    "offset box",
			det:     Detection{X: 562.5, Y: 176, W: 375, H: 281},
			expectX: 750,
			expectY: 316.5,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := tc.det.Center()
			if x != tc.expectX {
				t.Errorf("Center X: got %.2f, want %.2f", x, tc.expectX)
			}
			if y != tc.expectY {
				t.Errorf("Center Y: got %.2f, want %.2f", y, tc.expectY)
			}
		})
	}
}

func TestDetection_Area(t *testing.T) {
	tests := []struct {
		name   string
		det    Detection
		expect float64
	}{
		{"square face", Detection{W: 100, H: 100}, 10000},
		{"thin box", Detection{W: 10, H: 200}, 2000},
		{"degenerate", Detection{W: 0, H: 200}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if area := tc.det.Area(); area != tc.expect {
				t.Errorf("Area: got %.2f, want %.2f", area, tc.expect)
			}
		})
	}
}

func TestDetection_Rectangle(t *testing.T) {
	d := Detection{X: 562.5, Y: 176.1, W: 375.9, H: 281.0}
	want := image.Rect(562, 176, 937, 457)
	if got := d.Rectangle(); got != want {
		t.Errorf("Rectangle: got %v, want %v", got, want)
	}
}

func TestFilterByConfidence(t *testing.T) {
	dets := []Detection{
		{X: 1, Confidence: 0.9},
		{X: 2, Confidence: 0.2},
		{X: 3, Confidence: 0.5},
		{X: 4, Confidence: 0.49},
	}

	got := FilterByConfidence(dets, 0.5)
	if len(got) != 2 {
		t.Fatalf("got %d detections, want 2", len(got))
	}
	if got[0].X != 1 || got[1].X != 3 {
		t.Errorf("order not kept: %+v", got)
	}

	if all := FilterByConfidence(dets, 0); len(all) != len(dets) {
		t.Errorf("min 0 should keep all, got %d", len(all))
	}
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name       string
		detections []Detection
		expectNil  bool
		expectIdx  int
	}{
		{
			name:       "empty list",
			detections: []Detection{},
			expectNil:  true,
		},
		{
			name: "single detection",
			detections: []Detection{
				{X: 40, Y: 40, W: 20, H: 20, Confidence: 0.9},
			},
			expectIdx: 0,
		},
		{
			name: "high confidence beats larger area",
			detections: []Detection{
				{X: 0, Y: 0, W: 40, H: 40, Confidence: 0.5},
				{X: 30, Y: 30, W: 20, H: 20, Confidence: 0.95},
			},
			expectIdx: 1, // 0.95*0.7 + 0.25*0.3 = 0.74 vs 0.5*0.7 + 0.3 = 0.65
		},
		{
			name: "same confidence picks larger",
			detections: []Detection{
				{X: 30, Y: 30, W: 10, H: 10, Confidence: 0.8},
				{X: 0, Y: 0, W: 50, H: 50, Confidence: 0.8},
			},
			expectIdx: 1,
		},
		{
			name: "all degenerate falls back to confidence",
			detections: []Detection{
				{X: 1, Confidence: 0.3},
				{X: 2, Confidence: 0.6},
			},
			expectIdx: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			best := SelectBest(tc.detections)
			if tc.expectNil {
				if best != nil {
					t.Errorf("SelectBest: expected nil, got %+v", best)
				}
				return
			}

			if best == nil {
				t.Fatal("SelectBest: expected non-nil, got nil")
			}

			expected := tc.detections[tc.expectIdx]
			if *best != expected {
				t.Errorf("SelectBest: got %+v, want %+v", *best, expected)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.InputWidth != 640 || cfg.InputHeight != 640 {
		t.Errorf("input size: got %dx%d, want 640x640", cfg.InputWidth, cfg.InputHeight)
	}
	if !cfg.KeepRatio || !cfg.SwapRB {
		t.Errorf("KeepRatio and SwapRB should default to true: %+v", cfg)
	}
	if cfg.BoxesOutput != "detection_bboxes" || cfg.ScoresOutput != "detection_scores" {
		t.Errorf("output names: got %q, %q", cfg.BoxesOutput, cfg.ScoresOutput)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	bad := cfg
	bad.InputWidth = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestDecodeImage(t *testing.T) {
	src := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer src.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, src)
	if err != nil {
		t.Fatalf("IMEncode: %v", err)
	}
	defer buf.Close()

	img, err := DecodeImage(buf.GetBytes())
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	defer img.Close()

	if img.Cols() != 64 || img.Rows() != 48 {
		t.Errorf("size: got %dx%d, want 64x48", img.Cols(), img.Rows())
	}
}

func TestDecodeImage_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("not an image")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeImage(tc.data); !errors.Is(err, ErrEmptyImage) {
				t.Errorf("got %v, want ErrEmptyImage", err)
			}
		})
	}
}
