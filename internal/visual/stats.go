package visual

import (
	"math"
	"sort"

	"github.com/Rosh-10/automated-analysis-project/internal/analysis"
)

const maxBins = 50

// binCount picks the larger of the Sturges and Freedman-Diaconis estimates,
// clamped to [1, maxBins].
func binCount(sorted []float64) int {
	n := len(sorted)
	if n < 2 {
		return 1
	}
	span := sorted[n-1] - sorted[0]
	if span <= 0 {
		return 1
	}
	bins := int(math.Ceil(math.Log2(float64(n)) + 1))
	iqr := quantile(sorted, 0.75) - quantile(sorted, 0.25)
	if iqr > 0 {
		width := 2 * iqr * math.Pow(float64(n), -1.0/3.0)
		if fd := int(math.Ceil(span / width)); fd > bins {
			bins = fd
		}
	}
	return min(max(bins, 1), maxBins)
}

// histogram splits [lo, hi] into equal-width bins; the last bin is closed.
func histogram(vals []float64, lo, hi float64, bins int) []int {
	counts := make([]int, bins)
	width := (hi - lo) / float64(bins)
	for _, v := range vals {
		i := 0
		if width > 0 {
			i = int((v - lo) / width)
		}
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		counts[i]++
	}
	return counts
}

// scottBandwidth returns the Gaussian KDE bandwidth, or 0 when undefined.
func scottBandwidth(vals []float64) float64 {
	n := len(vals)
	if n < 2 {
		return 0
	}
	_, std := analysis.MeanStd(vals)
	h := std * math.Pow(float64(n), -0.2)
	if !finite(h) {
		return 0
	}
	return h
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// kde evaluates a Gaussian kernel density at xs, scaled by scale.
func kde(vals, xs []float64, h, scale float64) []float64 {
	out := make([]float64, len(xs))
	norm := scale / (float64(len(vals)) * h * math.Sqrt(2*math.Pi))
	for i, x := range xs {
		var s float64
		for _, v := range vals {
			u := (x - v) / h
			s += math.Exp(-0.5 * u * u)
		}
		out[i] = s * norm
	}
	return out
}

func sortedCopy(vals []float64) []float64 {
	out := append([]float64(nil), vals...)
	sort.Float64s(out)
	return out
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// padRange widens a degenerate or tight [lo, hi] so chart ranges never collapse.
func padRange(lo, hi float64) (float64, float64) {
	if hi > lo {
		pad := (hi - lo) * 0.05
		return lo - pad, hi + pad
	}
	d := math.Abs(lo) * 0.1
	if d == 0 {
		d = 0.5
	}
	return lo - d, hi + d
}
