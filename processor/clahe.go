package processor

import (
	"math"

	"github.com/nci/bandstack/utils"
)

const defaultCLAHEBins = 256

// equalizeAdaptHist returns the contrast limited adaptive histogram
// equalization of samples as values in [0, 1]. NaN samples are left out of
// the histograms and come out as 0, as does a constant band.
func equalizeAdaptHist(samples []float64, shape utils.Shape, m AdaptiveEqualize) []float64 {
	out := make([]float64, len(samples))

	nbins := m.NBins
	if nbins == 0 {
		nbins = defaultCLAHEBins
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, value := range samples {
		if math.IsNaN(value) {
			continue
		}
		lo = math.Min(lo, value)
		hi = math.Max(hi, value)
	}
	if !(hi > lo) {
		return out
	}

	bins := make([]int, len(samples))
	binScale := float64(nbins-1) / (hi - lo)
	for i, value := range samples {
		if math.IsNaN(value) {
			bins[i] = -1
			continue
		}
		bins[i] = int(math.Round((value - lo) * binScale))
	}

	kh, kw := kernelSize(shape, m.KernelSize)
	rows := newTileAxis(shape.Height, kh)
	cols := newTileAxis(shape.Width, kw)

	luts := make([][]float64, len(rows.starts)*len(cols.starts))
	hist := make([]int, nbins)
	for ty := range rows.starts {
		for tx := range cols.starts {
			for b := range hist {
				hist[b] = 0
			}
			for y := rows.starts[ty]; y < rows.ends[ty]; y++ {
				for x := cols.starts[tx]; x < cols.ends[tx]; x++ {
					if b := bins[y*shape.Width+x]; b >= 0 {
						hist[b]++
					}
				}
			}
			tilePixels := (rows.ends[ty] - rows.starts[ty]) * (cols.ends[tx] - cols.starts[tx])
			clipLimit := int(m.ClipLimit * float64(tilePixels))
			if clipLimit < 1 {
				clipLimit = 1
			}
			clipHistogram(hist, clipLimit)
			luts[ty*len(cols.starts)+tx] = cumulativeLUT(hist)
		}
	}

	rowW := rows.weights(shape.Height)
	colW := cols.weights(shape.Width)
	ntx := len(cols.starts)
	for y := 0; y < shape.Height; y++ {
		ry := rowW[y]
		for x := 0; x < shape.Width; x++ {
			i := y*shape.Width + x
			b := bins[i]
			if b < 0 {
				continue
			}
			cx := colW[x]
			top := (1-cx.w)*luts[ry.i0*ntx+cx.i0][b] + cx.w*luts[ry.i0*ntx+cx.i1][b]
			bottom := (1-cx.w)*luts[ry.i1*ntx+cx.i0][b] + cx.w*luts[ry.i1*ntx+cx.i1][b]
			out[i] = (1-ry.w)*top + ry.w*bottom
		}
	}
	return out
}

func kernelSize(shape utils.Shape, k int) (int, int) {
	if k > 0 {
		return minInt(k, shape.Height), minInt(k, shape.Width)
	}
	return maxInt(shape.Height/8, 1), maxInt(shape.Width/8, 1)
}

// tileAxis holds the contextual tile boundaries along one image axis.
type tileAxis struct {
	starts, ends []int
	centres      []float64
}

func newTileAxis(size, kernel int) tileAxis {
	var a tileAxis
	for start := 0; start < size; start += kernel {
		end := minInt(start+kernel, size)
		a.starts = append(a.starts, start)
		a.ends = append(a.ends, end)
		a.centres = append(a.centres, float64(start+end-1)/2)
	}
	return a
}

// axisWeight interpolates between tiles i0 and i1 with weight w on i1.
type axisWeight struct {
	i0, i1 int
	w      float64
}

func (a tileAxis) weights(size int) []axisWeight {
	out := make([]axisWeight, size)
	last := len(a.centres) - 1
	t := 0
	for p := 0; p < size; p++ {
		pos := float64(p)
		switch {
		case pos <= a.centres[0]:
			out[p] = axisWeight{0, 0, 0}
		case pos >= a.centres[last]:
			out[p] = axisWeight{last, last, 0}
		default:
			for a.centres[t+1] < pos {
				t++
			}
			w := (pos - a.centres[t]) / (a.centres[t+1] - a.centres[t])
			out[p] = axisWeight{t, t + 1, w}
		}
	}
	return out
}

// clipHistogram caps every bin at limit and spreads the excess evenly over
// all bins without pushing any bin above the cap.
func clipHistogram(hist []int, limit int) {
	nbins := len(hist)
	excess := 0
	for _, count := range hist {
		if count > limit {
			excess += count - limit
		}
	}
	if excess == 0 {
		return
	}

	incr := excess / nbins
	upper := limit - incr
	for b, count := range hist {
		switch {
		case count > limit:
			hist[b] = limit
		case count > upper:
			excess -= limit - count
			hist[b] = limit
		default:
			excess -= incr
			hist[b] = count + incr
		}
	}

	for excess > 0 {
		step := maxInt(nbins/excess, 1)
		before := excess
		for start := 0; start < step && excess > 0; start++ {
			for b := start; b < nbins && excess > 0; b += step {
				if hist[b] < limit {
					hist[b]++
					excess--
				}
			}
		}
		if excess == before {
			break
		}
	}
}

func cumulativeLUT(hist []int) []float64 {
	lut := make([]float64, len(hist))
	total := 0
	for _, count := range hist {
		total += count
	}
	if total == 0 {
		return lut
	}

	sum := 0
	for b, count := range hist {
		sum += count
		lut[b] = float64(sum) / float64(total)
	}
	return lut
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
