package detection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gocv.io/x/gocv"
)

func yunetConfig(t *testing.T) YuNetConfig {
	t.Helper()
	path := findModelPath()
	if path == "" {
		t.Skip("YuNet model not found, skipping test")
	}
	cfg := DefaultYuNetConfig()
	cfg.ModelPath = path
	return cfg
}

func TestYuNetNewInvalidPath(t *testing.T) {
	cfg := DefaultYuNetConfig()
	cfg.ModelPath = "/nonexistent/path/model.onnx"

	if _, err := NewYuNet(cfg); err == nil {
		t.Error("expected error for invalid model path")
	}
}

func TestYuNetDetect_EmptyImage(t *testing.T) {
	detector, err := NewYuNet(yunetConfig(t))
	if err != nil {
		t.Fatalf("NewYuNet: %v", err)
	}
	defer detector.Close()

	empty := gocv.NewMat()
	defer empty.Close()

	if _, err := detector.Detect(context.Background(), empty); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("got %v, want ErrEmptyImage", err)
	}
}

func TestYuNetDetect_SolidImage(t *testing.T) {
	detector, err := NewYuNet(yunetConfig(t))
	if err != nil {
		t.Fatalf("NewYuNet: %v", err)
	}
	defer detector.Close()

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), 240, 320, gocv.MatTypeCV8UC3)
	defer img.Close()

	dets, err := detector.Detect(context.Background(), img)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(dets) > 0 {
		t.Errorf("expected no detections in solid color image, got %d", len(dets))
	}
}

func TestYuNetDetect_Canceled(t *testing.T) {
	detector, err := NewYuNet(yunetConfig(t))
	if err != nil {
		t.Fatalf("NewYuNet: %v", err)
	}
	defer detector.Close()

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 240, 320, gocv.MatTypeCV8UC3)
	defer img.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := detector.Detect(ctx, img); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestYuNetConcurrency(t *testing.T) {
	detector, err := NewYuNet(yunetConfig(t))
	if err != nil {
		t.Fatalf("NewYuNet: %v", err)
	}
	defer detector.Close()

	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(100, 100, 100, 0), 240, 320, gocv.MatTypeCV8UC3)
	defer img.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := detector.Detect(context.Background(), img); err != nil {
				t.Errorf("concurrent detection failed: %v", err)
			}
		}()
	}
	wg.Wait()
}

func findModelPath() string {
	paths := []string{
		"../../models/face_detection_yunet.onnx",
		"models/face_detection_yunet.onnx",
	}

	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if _, err := os.Stat(abs); err == nil {
			return abs
		}
	}
	return ""
}
