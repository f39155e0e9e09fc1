package letterbox

import (
	"errors"
	"testing"

	"github.com/teslashibe/go-yoloface/pkg/geometry"
	"gocv.io/x/gocv"
)

func solidMat(w, h int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 150, 100, 0), h, w, gocv.MatTypeCV8UC3)
}

func TestResize_OutputSize(t *testing.T) {
	tests := []struct {
		name      string
		w, h      int
		keepRatio bool
	}{
		{"wide keep ratio", 1200, 800, true},
		{"tall keep ratio", 480, 640, true},
		{"wide stretched", 1200, 800, false},
		{"square", 300, 300, true},
		{"upscale small", 32, 16, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := solidMat(tc.w, tc.h)
			defer src.Close()

			res, err := Resize(src, 640, 640, tc.keepRatio)
			if err != nil {
				t.Fatalf("Resize: %v", err)
			}
			defer res.Close()

			if res.Image.Rows() != 640 || res.Image.Cols() != 640 {
				t.Errorf("size: got %dx%d, want 640x640", res.Image.Cols(), res.Image.Rows())
			}
			if res.Image.Channels() != 3 {
				t.Errorf("channels: got %d, want 3", res.Image.Channels())
			}
		})
	}
}

func TestResize_WideScenario(t *testing.T) {
	src := solidMat(1200, 800)
	defer src.Close()

	res, err := Resize(src, 640, 640, true)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	defer res.Close()

	if res.NewW != 640 || res.NewH != 427 {
		t.Errorf("content: got %dx%d, want 640x427", res.NewW, res.NewH)
	}
	if res.TopPad != 106 || res.LeftPad != 0 {
		t.Errorf("pads: got top=%d left=%d, want top=106 left=0", res.TopPad, res.LeftPad)
	}

	// Border rows are zero, content rows keep the source colour.
	for _, row := range []int{0, 105, 533, 639} {
		px := res.Image.GetVecbAt(row, 320)
		if px[0] != 0 || px[1] != 0 || px[2] != 0 {
			t.Errorf("row %d: expected black border, got %v", row, px)
		}
	}
	for _, row := range []int{106, 320, 532} {
		px := res.Image.GetVecbAt(row, 320)
		if px[0] != 200 || px[1] != 150 || px[2] != 100 {
			t.Errorf("row %d: expected content, got %v", row, px)
		}
	}
}

func TestResize_TallPadsColumns(t *testing.T) {
	src := solidMat(480, 640)
	defer src.Close()

	res, err := Resize(src, 640, 640, true)
	if err != nil {
		t.Fatalf("Resize: %v", err)
	}
	defer res.Close()

	if res.LeftPad != 80 || res.TopPad != 0 {
		t.Fatalf("pads: got top=%d left=%d", res.TopPad, res.LeftPad)
	}
	if px := res.Image.GetVecbAt(320, 79); px[0] != 0 {
		t.Errorf("col 79 should be border, got %v", px)
	}
	if px := res.Image.GetVecbAt(320, 80); px[0] != 200 {
		t.Errorf("col 80 should be content, got %v", px)
	}
}

func TestResize_SquareSameEitherWay(t *testing.T) {
	src := solidMat(500, 500)
	defer src.Close()

	a, err := Resize(src, 640, 640, true)
	if err != nil {
		t.Fatalf("Resize keep: %v", err)
	}
	defer a.Close()

	b, err := Resize(src, 640, 640, false)
	if err != nil {
		t.Fatalf("Resize stretch: %v", err)
	}
	defer b.Close()

	if a.Layout != b.Layout {
		t.Errorf("layouts differ: %+v vs %+v", a.Layout, b.Layout)
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a.Image, b.Image, &diff)
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray)
	if n := gocv.CountNonZero(gray); n != 0 {
		t.Errorf("images differ in %d pixels", n)
	}
}

func TestResize_EmptyImage(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()

	_, err := Resize(empty, 640, 640, true)
	if !errors.Is(err, geometry.ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage, got %v", err)
	}
}
