package processor

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nci/bandstack/utils"
	"gonum.org/v1/gonum/floats"
)

func uint16Band(height, width int, data ...uint16) *utils.UInt16Raster {
	return &utils.UInt16Raster{Data: data, Height: height, Width: width}
}

func byteMinMax(r *utils.ByteRaster) (uint8, uint8) {
	lo, hi := uint8(255), uint8(0)
	for _, v := range r.Data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func TestPercentileRescaleOrdering(t *testing.T) {
	band := uint16Band(2, 2, 0, 0, 100, 200)

	out, err := Normalize(band, nil, PercentileRescale{Percentile: 2})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	expected := []uint8{0, 0, 131, 255}
	if diff := cmp.Diff(expected, out.Data); diff != "" {
		t.Errorf("unexpected rescale output (-want +got):\n%s", diff)
	}
	if !(out.Data[0] < out.Data[2] && out.Data[2] < out.Data[3]) {
		t.Errorf("ordering not preserved: %v", out.Data)
	}
	if out.Shape() != band.Shape() {
		t.Errorf("shape expecting %v, actual %v", band.Shape(), out.Shape())
	}
}

func TestPercentileRescaleFullRange(t *testing.T) {
	data := make([]uint16, 100)
	for i := range data {
		data[i] = uint16(i * 37)
	}
	band := uint16Band(10, 10, data...)

	out, err := Normalize(band, nil, PercentileRescale{Percentile: 2})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	lo, hi := byteMinMax(out)
	if lo != 0 || hi != 255 {
		t.Errorf("output range expecting [0, 255], actual [%v, %v]", lo, hi)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	data := make([]uint16, 64*64)
	for i := range data {
		data[i] = uint16((i*7919)%4096 + 5000)
	}
	band := uint16Band(64, 64, data...)
	orig := append([]uint16(nil), data...)

	methods := []Method{
		PercentileRescale{Percentile: 2},
		AdaptiveEqualize{ClipLimit: 0.03},
	}
	for _, m := range methods {
		first, err := Normalize(band, nil, m)
		if err != nil {
			t.Fatalf("%s: Normalize failed: %v", m.Name(), err)
		}
		second, err := Normalize(band, nil, m)
		if err != nil {
			t.Fatalf("%s: Normalize failed: %v", m.Name(), err)
		}
		if diff := cmp.Diff(first.Data, second.Data); diff != "" {
			t.Errorf("%s: repeated output differs (-first +second):\n%s", m.Name(), diff)
		}
	}
	if diff := cmp.Diff(orig, band.Data); diff != "" {
		t.Errorf("input band modified (-want +got):\n%s", diff)
	}
}

func TestMaskTightensCuts(t *testing.T) {
	band := uint16Band(2, 5, 100, 200, 300, 400, 65535, 500, 600, 700, 800, 65535)
	mask := &FillMask{
		Data:   []bool{false, false, false, false, true, false, false, false, false, true},
		Height: 2,
		Width:  5,
	}

	loAll, hiAll, ok, err := PercentileCuts(band, nil, 2)
	if err != nil || !ok {
		t.Fatalf("PercentileCuts without mask failed: ok=%v err=%v", ok, err)
	}
	loMasked, hiMasked, ok, err := PercentileCuts(band, mask, 2)
	if err != nil || !ok {
		t.Fatalf("PercentileCuts with mask failed: ok=%v err=%v", ok, err)
	}

	if !floats.EqualWithinAbs(hiAll, 65535, 1e-9) {
		t.Errorf("unmasked high cut expecting 65535, actual %v", hiAll)
	}
	if !floats.EqualWithinAbs(loMasked, 114, 1e-9) || !floats.EqualWithinAbs(hiMasked, 786, 1e-9) {
		t.Errorf("masked cuts expecting (114, 786), actual (%v, %v)", loMasked, hiMasked)
	}
	if hiMasked-loMasked >= hiAll-loAll {
		t.Errorf("mask did not tighten the cut range: masked %v, unmasked %v", hiMasked-loMasked, hiAll-loAll)
	}

	out, err := Normalize(band, mask, PercentileRescale{Percentile: 2})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if out.Data[8] != 255 {
		t.Errorf("brightest valid pixel expecting 255, actual %v", out.Data[8])
	}
	if out.Data[0] != 0 {
		t.Errorf("darkest valid pixel expecting 0, actual %v", out.Data[0])
	}
}

func TestPercentileDegenerate(t *testing.T) {
	out, err := Normalize(uint16Band(2, 2, 7, 7, 7, 7), nil, PercentileRescale{Percentile: 2})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if diff := cmp.Diff([]uint8{0, 0, 0, 0}, out.Data); diff != "" {
		t.Errorf("constant band (-want +got):\n%s", diff)
	}

	mask := &FillMask{Data: []bool{true, true, true, true}, Height: 2, Width: 2}
	out, err = Normalize(uint16Band(2, 2, 1, 2, 3, 4), mask, PercentileRescale{Percentile: 2})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if diff := cmp.Diff([]uint8{0, 0, 0, 0}, out.Data); diff != "" {
		t.Errorf("fully masked band (-want +got):\n%s", diff)
	}
}

func TestPercentileRescaleNaN(t *testing.T) {
	nan := float32(math.NaN())
	band := &utils.Float32Raster{Data: []float32{0, nan, 50, 100}, Height: 2, Width: 2}

	out, err := Normalize(band, nil, PercentileRescale{Percentile: 1})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if out.Data[1] != 0 {
		t.Errorf("NaN pixel expecting 0, actual %v", out.Data[1])
	}
	if out.Data[0] != 0 || out.Data[3] != 255 {
		t.Errorf("valid pixels expecting 0 and 255, actual %v", out.Data)
	}
}

func TestParseMethod(t *testing.T) {
	_, err := ParseMethod(utils.NormalizationConfig{Method: "bogus"})
	if !errors.Is(err, utils.ErrConfig) {
		t.Errorf("bogus method expecting ErrConfig, actual %v", err)
	}

	m, err := ParseMethod(utils.NormalizationConfig{Method: MethodAdaptiveEqualize, ClipLimit: 0.01})
	if err != nil {
		t.Fatalf("ParseMethod failed: %v", err)
	}
	if diff := cmp.Diff(Method(AdaptiveEqualize{ClipLimit: 0.01}), m); diff != "" {
		t.Errorf("unexpected method (-want +got):\n%s", diff)
	}

	invalid := []utils.NormalizationConfig{
		{Method: MethodPercentileRescale, Percentile: 0},
		{Method: MethodPercentileRescale, Percentile: 50},
		{Method: MethodPercentileRescale, Percentile: math.NaN()},
		{Method: MethodAdaptiveEqualize, ClipLimit: 0},
		{Method: MethodAdaptiveEqualize, ClipLimit: math.Inf(1)},
		{Method: MethodAdaptiveEqualize, ClipLimit: 0.03, KernelSize: -1},
		{Method: MethodAdaptiveEqualize, ClipLimit: 0.03, NBins: 1},
	}
	for _, cfg := range invalid {
		if _, err := ParseMethod(cfg); !errors.Is(err, utils.ErrConfig) {
			t.Errorf("%+v expecting ErrConfig, actual %v", cfg, err)
		}
	}
}

func TestNormalizeRejectsBeforeReading(t *testing.T) {
	_, err := Normalize(nil, nil, PercentileRescale{Percentile: 60})
	if !errors.Is(err, utils.ErrConfig) {
		t.Errorf("invalid percentile expecting ErrConfig, actual %v", err)
	}

	_, err = Normalize(uint16Band(1, 2, 1, 2), nil, nil)
	if !errors.Is(err, utils.ErrConfig) {
		t.Errorf("nil method expecting ErrConfig, actual %v", err)
	}

	mask := &FillMask{Data: []bool{false}, Height: 1, Width: 1}
	_, err = Normalize(uint16Band(1, 2, 1, 2), mask, PercentileRescale{Percentile: 2})
	if !errors.Is(err, utils.ErrShapeMismatch) {
		t.Errorf("mask of another shape expecting ErrShapeMismatch, actual %v", err)
	}
}
