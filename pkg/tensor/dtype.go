package tensor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/x448/float16"
)

// DataType is a tensor element type using the KServe v2 names.
type DataType string

// Supported element types.
const (
	FP32  DataType = "FP32"
	FP16  DataType = "FP16"
	FP64  DataType = "FP64"
	UINT8 DataType = "UINT8"
	INT8  DataType = "INT8"
	INT16 DataType = "INT16"
	INT32 DataType = "INT32"
	INT64 DataType = "INT64"
)

// ErrUnsupportedDataType is returned for element types we can't convert.
var ErrUnsupportedDataType = errors.New("tensor: unsupported data type")

// ParseDataType accepts both protocol names ("FP16") and model-config names
// ("TYPE_FP16").
func ParseDataType(s string) (DataType, error) {
	dt := DataType(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), "TYPE_"))
	switch dt {
	case FP32, FP16, FP64, UINT8, INT8, INT16, INT32, INT64:
		return dt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedDataType, s)
}

// Cast converts float32 data to the Go representation of dt that encodes as
// JSON numbers: []float32 for FP32/FP16, []float64 for FP64 and []int64 for
// integer types. FP16 values are rounded to half precision. Integer casts
// truncate toward zero.
func Cast(data []float32, dt DataType) (any, error) {
	switch dt {
	case FP32:
		return data, nil
	case FP16:
		out := make([]float32, len(data))
		for i, v := range data {
			out[i] = float16.Fromfloat32(v).Float32()
		}
		return out, nil
	case FP64:
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out, nil
	case UINT8, INT8, INT16, INT32, INT64:
		out := make([]int64, len(data))
		for i, v := range data {
			out[i] = int64(v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedDataType, dt)
}

// FromFloat64 narrows decoded response values back to float32, first
// rounding through dt so FP16 outputs carry half precision.
func FromFloat64(values []float64, dt DataType) ([]float32, error) {
	if _, err := ParseDataType(string(dt)); err != nil {
		return nil, err
	}
	out := make([]float32, len(values))
	for i, v := range values {
		f := float32(v)
		if dt == FP16 {
			f = float16.Fromfloat32(f).Float32()
		}
		out[i] = f
	}
	return out, nil
}
