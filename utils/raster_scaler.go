package utils

import (
	"fmt"
	"math"
)

// Samples widens any supported raster to float64 without modifying it.
func Samples(r Raster) ([]float64, error) {
	switch t := r.(type) {
	case *ByteRaster:
		out := make([]float64, len(t.Data))
		for i, value := range t.Data {
			out[i] = float64(value)
		}
		return out, nil

	case *Int16Raster:
		out := make([]float64, len(t.Data))
		for i, value := range t.Data {
			out[i] = float64(value)
		}
		return out, nil

	case *UInt16Raster:
		out := make([]float64, len(t.Data))
		for i, value := range t.Data {
			out[i] = float64(value)
		}
		return out, nil

	case *Float32Raster:
		out := make([]float64, len(t.Data))
		for i, value := range t.Data {
			out[i] = float64(value)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("Raster type not implemented")
	}
}

func dataLen(r Raster) int {
	switch t := r.(type) {
	case *ByteRaster:
		return len(t.Data)
	case *Int16Raster:
		return len(t.Data)
	case *UInt16Raster:
		return len(t.Data)
	case *Float32Raster:
		return len(t.Data)
	default:
		return -1
	}
}

// CheckRaster verifies that the sample buffer matches the declared size.
func CheckRaster(r Raster) error {
	if r == nil {
		return fmt.Errorf("raster is nil")
	}
	s := r.Shape()
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("empty raster %v", s)
	}
	if n := dataLen(r); n != s.Width*s.Height {
		return fmt.Errorf("raster %v holds %d samples", s, n)
	}
	return nil
}

// ScaleToByte maps samples in [0, 1] onto bytes by truncation; values
// outside the range and NaN saturate to the nearest bound (NaN to 0).
func ScaleToByte(values []float64, shape Shape) *ByteRaster {
	out := &ByteRaster{Data: make([]uint8, len(values)), Height: shape.Height, Width: shape.Width}
	for i, value := range values {
		switch {
		case math.IsNaN(value) || value <= 0:
			out.Data[i] = 0
		case value >= 1:
			out.Data[i] = 0xFF
		default:
			out.Data[i] = uint8(value * 255)
		}
	}
	return out
}
