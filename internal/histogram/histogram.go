// Package histogram bins numeric samples with the Freedman–Diaconis rule.
package histogram

import (
	"math"
	"sort"

	"github.com/aclements/go-moremath/stats"

	"github.com/jwulff/sensorviz/internal/dataset"
)

// Bin count limits.
const (
	MinBins      = 10
	MaxBins      = 60
	FallbackBins = 20
)

// iqrFloor keeps the bin width positive when the quartiles coincide.
const iqrFloor = 1e-9

// Bin is one histogram bar.
type Bin struct {
	EdgeLow float64 `json:"edge_low"`
	Count   int     `json:"count"`
}

// Compute bins xs. Non-finite values are ignored. The result has between
// MinBins and MaxBins bins whose counts sum to the number of finite inputs;
// an empty sample yields no bins.
func Compute(xs []float64) []Bin {
	sorted := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			sorted = append(sorted, x)
		}
	}
	n := len(sorted)
	if n == 0 {
		return []Bin{}
	}
	sort.Float64s(sorted)

	// Nearest-rank quartiles, no interpolation.
	q1 := sorted[(n-1)/4]
	q3 := sorted[3*(n-1)/4]
	iqr := math.Max(q3-q1, iqrFloor)
	width := 2 * iqr / math.Cbrt(float64(n))

	lo, hi := stats.Bounds(sorted)
	// Dividing before subtracting keeps the span finite for samples near
	// ±MaxFloat64.
	k := binCount(hi/2-lo/2, width/2)

	fk := float64(k)
	step := hi/fk - lo/fk
	if step == 0 {
		// A zero span would collapse every edge onto lo.
		step = 1
	}

	bins := make([]Bin, k)
	for i := range bins {
		bins[i].EdgeLow = lo + float64(i)*step
	}
	for _, x := range sorted {
		idx := int(math.Floor((x/fk - lo/fk) / step * fk))
		if idx < 0 {
			idx = 0
		}
		if idx > k-1 {
			idx = k - 1
		}
		bins[idx].Count++
	}
	return bins
}

// binCount derives the number of bins for a data span and bin width.
func binCount(span, width float64) int {
	if width <= 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return FallbackBins
	}
	raw := math.Ceil(span / width)
	switch {
	case math.IsNaN(raw):
		return FallbackBins
	case raw < MinBins:
		return MinBins
	case raw > MaxBins:
		return MaxBins
	default:
		return int(raw)
	}
}

// Values extracts the finite numeric readings of column from rows.
func Values(rows []dataset.Record, column string) []float64 {
	xs := []float64{}
	for _, r := range rows {
		if v, ok := r.Get(column).Float(); ok {
			xs = append(xs, v)
		}
	}
	return xs
}

// Total sums the bin counts.
func Total(bins []Bin) int {
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	return total
}
