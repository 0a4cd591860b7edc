package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// quartiles returns the median and inter-quartile range of v. For an even
// count the upper of the two middle values is the median. v is sorted in
// place. Both are 0 for an empty slice.
func quartiles(v []float64) (median, iqr float64) {
	if len(v) == 0 {
		return 0, 0
	}
	sort.Float64s(v)
	median = v[len(v)/2]
	iqr = stat.Quantile(0.75, stat.Empirical, v, nil) - stat.Quantile(0.25, stat.Empirical, v, nil)
	return median, iqr
}

// finiteMean is the mean of the finite values of v, or 0 if there are none.
// Peak widths of degenerate traces are Inf or NaN and are left out.
func finiteMean(v []float64) float64 {
	f := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsInf(x, 0) && !math.IsNaN(x) {
			f = append(f, x)
		}
	}
	if len(f) == 0 {
		return 0
	}
	sort.Float64s(f)
	return stat.Mean(f, nil)
}
