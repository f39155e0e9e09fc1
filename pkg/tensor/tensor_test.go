package tensor

import (
	"errors"
	"math"
	"testing"

	"gocv.io/x/gocv"
)

func TestFromImage_LayoutAndRange(t *testing.T) {
	// 2x3 image, every pixel (B=10, G=20, R=255) in gocv's channel order.
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 255, 0), 2, 3, gocv.MatTypeCV8UC3)
	defer img.Close()
	img.SetUCharAt(0, 0, 0) // first pixel, channel 0

	tt, err := FromImage(img)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}

	want := []int64{1, 3, 2, 3}
	if len(tt.Shape) != 4 {
		t.Fatalf("shape: got %v, want %v", tt.Shape, want)
	}
	for i := range want {
		if tt.Shape[i] != want[i] {
			t.Fatalf("shape: got %v, want %v", tt.Shape, want)
		}
	}
	if len(tt.Data) != 18 {
		t.Fatalf("data: got %d values, want 18", len(tt.Data))
	}

	plane := 6
	check := func(idx int, want float32) {
		t.Helper()
		if math.Abs(float64(tt.Data[idx]-want)) > 1e-6 {
			t.Errorf("data[%d]: got %v, want %v", idx, tt.Data[idx], want)
		}
	}
	check(0, 0)              // channel 0, pixel 0 was zeroed
	check(1, 10.0/255.0)     // channel 0, pixel 1
	check(plane, 20.0/255.0) // channel 1
	check(2*plane+5, 1)      // channel 2, last pixel
}

func TestFromImage_Empty(t *testing.T) {
	img := gocv.NewMat()
	defer img.Close()

	if _, err := FromImage(img); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage, got %v", err)
	}
}

func TestNew_Validate(t *testing.T) {
	if _, err := New([]int64{2, 2}, []float32{1, 2, 3, 4}); err != nil {
		t.Errorf("valid tensor rejected: %v", err)
	}
	if _, err := New([]int64{2, 2}, []float32{1, 2, 3}); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape, got %v", err)
	}
	if _, err := New([]int64{-1, 4}, []float32{1, 2, 3, 4}); !errors.Is(err, ErrShape) {
		t.Errorf("expected ErrShape for negative dim, got %v", err)
	}
	if _, err := New([]int64{0, 4}, nil); err != nil {
		t.Errorf("empty tensor rejected: %v", err)
	}
}

func TestParseDataType(t *testing.T) {
	tests := []struct {
		in      string
		want    DataType
		wantErr bool
	}{
		{"FP32", FP32, false},
		{"TYPE_FP16", FP16, false},
		{"type_uint8", UINT8, false},
		{" INT64 ", INT64, false},
		{"BYTES", "", true},
		{"TYPE_STRING", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseDataType(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrUnsupportedDataType) {
					t.Errorf("expected ErrUnsupportedDataType, got %v", err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("ParseDataType(%q): got %q, %v; want %q", tc.in, got, err, tc.want)
			}
		})
	}
}

func TestCast(t *testing.T) {
	data := []float32{0, 0.1, 0.5, 1, 254.7}

	t.Run("FP32 passthrough", func(t *testing.T) {
		out, err := Cast(data, FP32)
		if err != nil {
			t.Fatal(err)
		}
		f := out.([]float32)
		if len(f) != len(data) || f[1] != 0.1 {
			t.Errorf("unexpected %v", f)
		}
	})

	t.Run("FP16 rounds", func(t *testing.T) {
		out, err := Cast(data, FP16)
		if err != nil {
			t.Fatal(err)
		}
		f := out.([]float32)
		if f[2] != 0.5 || f[3] != 1 {
			t.Errorf("exact halves changed: %v", f)
		}
		if f[1] == 0.1 {
			t.Error("0.1 should lose precision in FP16")
		}
		if math.Abs(float64(f[1])-0.1) > 1e-3 {
			t.Errorf("0.1 rounded too far: %v", f[1])
		}
	})

	t.Run("FP64 widens", func(t *testing.T) {
		out, err := Cast(data, FP64)
		if err != nil {
			t.Fatal(err)
		}
		if f := out.([]float64); f[3] != 1 {
			t.Errorf("unexpected %v", f)
		}
	})

	t.Run("UINT8 truncates", func(t *testing.T) {
		out, err := Cast(data, UINT8)
		if err != nil {
			t.Fatal(err)
		}
		got := out.([]int64)
		want := []int64{0, 0, 0, 1, 254}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("index %d: got %d, want %d", i, got[i], want[i])
			}
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if _, err := Cast(data, DataType("BYTES")); !errors.Is(err, ErrUnsupportedDataType) {
			t.Errorf("expected ErrUnsupportedDataType, got %v", err)
		}
	})
}

func TestFromFloat64(t *testing.T) {
	out, err := FromFloat64([]float64{1.5, 300.25}, FP32)
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 1.5 || out[1] != 300.25 {
		t.Errorf("unexpected %v", out)
	}

	if _, err := FromFloat64([]float64{1}, DataType("BOOL")); err == nil {
		t.Error("expected error for BOOL")
	}
}
