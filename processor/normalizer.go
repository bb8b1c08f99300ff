package processor

import (
	"fmt"
	"math"

	"github.com/nci/bandstack/utils"
)

const (
	MethodPercentileRescale = "percentile-rescale"
	MethodAdaptiveEqualize  = "adaptive-equalize"
)

// Method is one of PercentileRescale or AdaptiveEqualize.
type Method interface {
	Name() string
	Validate() error
	normalize(samples []float64, shape utils.Shape, mask *FillMask) *utils.ByteRaster
}

// PercentileRescale stretches the [Percentile, 100-Percentile] percentile
// range of a band linearly onto [0, 255].
type PercentileRescale struct {
	Percentile float64
}

func (m PercentileRescale) Name() string { return MethodPercentileRescale }

func (m PercentileRescale) Validate() error {
	if math.IsNaN(m.Percentile) || m.Percentile <= 0 || m.Percentile >= 50 {
		return &utils.ConfigError{Field: "percentile", Value: m.Percentile, Reason: "must be in the open interval (0, 50)"}
	}
	return nil
}

// AdaptiveEqualize applies contrast limited adaptive histogram
// equalization. A KernelSize of 0 uses tiles of 1/8 of each image
// dimension; NBins of 0 uses 256 bins.
type AdaptiveEqualize struct {
	ClipLimit  float64
	KernelSize int
	NBins      int
}

func (m AdaptiveEqualize) Name() string { return MethodAdaptiveEqualize }

func (m AdaptiveEqualize) Validate() error {
	if math.IsNaN(m.ClipLimit) || math.IsInf(m.ClipLimit, 0) || m.ClipLimit <= 0 {
		return &utils.ConfigError{Field: "clip_limit", Value: m.ClipLimit, Reason: "must be a positive number"}
	}
	if m.KernelSize < 0 {
		return &utils.ConfigError{Field: "kernel_size", Value: m.KernelSize, Reason: "must not be negative"}
	}
	if m.NBins != 0 && (m.NBins < 2 || m.NBins > 65536) {
		return &utils.ConfigError{Field: "nbins", Value: m.NBins, Reason: "must be between 2 and 65536"}
	}
	return nil
}

// ParseMethod builds a validated Method from its configuration name.
func ParseMethod(cfg utils.NormalizationConfig) (Method, error) {
	var m Method
	switch cfg.Method {
	case MethodPercentileRescale:
		m = PercentileRescale{Percentile: cfg.Percentile}
	case MethodAdaptiveEqualize:
		m = AdaptiveEqualize{ClipLimit: cfg.ClipLimit, KernelSize: cfg.KernelSize, NBins: cfg.NBins}
	default:
		return nil, &utils.ConfigError{Field: "method", Value: fmt.Sprintf("%q", cfg.Method),
			Reason: fmt.Sprintf("supported methods are %s and %s", MethodPercentileRescale, MethodAdaptiveEqualize)}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Normalize maps a raw band onto a byte band of the same shape. The mask
// marks fill pixels to leave out of the statistics; only the percentile
// rescale consults it.
func Normalize(band utils.Raster, mask *FillMask, method Method) (*utils.ByteRaster, error) {
	if method == nil {
		return nil, &utils.ConfigError{Field: "method", Value: "<nil>", Reason: "no normalization method"}
	}
	if err := method.Validate(); err != nil {
		return nil, err
	}
	if err := utils.CheckRaster(band); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	if mask != nil && mask.Shape() != band.Shape() {
		return nil, &utils.ShapeMismatchError{What: "fill mask", Want: band.Shape(), Got: mask.Shape()}
	}

	samples, err := utils.Samples(band)
	if err != nil {
		return nil, err
	}
	return method.normalize(samples, band.Shape(), mask), nil
}

func (m PercentileRescale) normalize(samples []float64, shape utils.Shape, mask *FillMask) *utils.ByteRaster {
	lo, hi, ok := percentileCuts(samples, mask, m.Percentile)
	return rescale(samples, shape, lo, hi, ok)
}

// The fill mask is not consulted here: fill pixels take part in
// the tile histograms, unlike the percentile rescale.
func (m AdaptiveEqualize) normalize(samples []float64, shape utils.Shape, _ *FillMask) *utils.ByteRaster {
	return utils.ScaleToByte(equalizeAdaptHist(samples, shape, m), shape)
}

// PercentileCuts returns the low and high cut points the percentile
// rescale would use for band. ok is false when no pixel is usable.
func PercentileCuts(band utils.Raster, mask *FillMask, percentile float64) (lo, hi float64, ok bool, err error) {
	if err = (PercentileRescale{Percentile: percentile}).Validate(); err != nil {
		return 0, 0, false, err
	}
	if mask != nil && mask.Shape() != band.Shape() {
		return 0, 0, false, &utils.ShapeMismatchError{What: "fill mask", Want: band.Shape(), Got: mask.Shape()}
	}
	samples, err := utils.Samples(band)
	if err != nil {
		return 0, 0, false, err
	}
	lo, hi, ok = percentileCuts(samples, mask, percentile)
	return lo, hi, ok, nil
}

// rescale maps lo to 0 and hi to 255, clipping outside values. A band
// without usable pixels or with lo == hi comes out all 0.
func rescale(samples []float64, shape utils.Shape, lo, hi float64, ok bool) *utils.ByteRaster {
	out := &utils.ByteRaster{Data: make([]uint8, len(samples)), Height: shape.Height, Width: shape.Width}
	if !ok || !(hi > lo) {
		return out
	}

	scale := 255 / (hi - lo)
	for i, value := range samples {
		switch {
		case math.IsNaN(value) || value <= lo:
			out.Data[i] = 0
		case value >= hi:
			out.Data[i] = 0xFF
		default:
			out.Data[i] = uint8((value - lo) * scale)
		}
	}
	return out
}
