// Package chrom computes chromatographic peak shape metrics.
//
// A trace is first up-sampled to at least MinPoints points (Interpolate),
// denoised with a one-level Haar wavelet (Smooth) and then measured
// (Analyze).
package chrom

import (
	"errors"
	"slices"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// MinPoints is the number of points a trace is up-sampled to
const MinPoints = 100

// collisionNudge moves an interpolation point that coincides with an
// existing retention time
const collisionNudge = 0.01

var (
	// ErrInsufficientData means a trace has less than 2 distinct time points
	ErrInsufficientData = errors.New("chrom: less than 2 distinct time points")
	// ErrNotSorted means retention times are not strictly increasing
	ErrNotSorted = errors.New("chrom: retention times not strictly increasing")
	// ErrLengthMismatch means times and intensities differ in length
	ErrLengthMismatch = errors.New("chrom: times and intensities differ in length")
)

// Interpolate adds natural cubic spline points to a trace with less than
// MinPoints points. Points are placed at regular intervals starting at the
// first retention time; original points are kept. A trace that already has
// enough points is returned as is.
func Interpolate(times, intens []float64) ([]float64, []float64, error) {
	if len(times) != len(intens) {
		return nil, nil, ErrLengthMismatch
	}
	if len(times) < 2 {
		return nil, nil, ErrInsufficientData
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return nil, nil, ErrNotSorted
		}
	}
	if len(times) >= MinPoints {
		return times, intens, nil
	}

	var spline interp.NaturalCubic
	if err := spline.Fit(times, intens); err != nil {
		return nil, nil, err
	}

	numNeeded := MinPoints - len(times)
	interval := (times[len(times)-1] - times[0]) / float64(numNeeded)

	rt := make([]float64, len(times), MinPoints)
	in := make([]float64, len(intens), MinPoints)
	copy(rt, times)
	copy(in, intens)

	for i := 0; i < numNeeded; i++ {
		t := times[0] + interval*float64(i)
		k := sort.SearchFloat64s(rt, t)
		if k < len(rt) && rt[k] == t {
			// At the start of the trace the point is moved to the left,
			// anywhere else to the right until it hits a free slot
			step := collisionNudge
			if k == 0 {
				step = -collisionNudge
			}
			for k < len(rt) && rt[k] == t {
				t += step
				k = sort.SearchFloat64s(rt, t)
			}
		}
		rt = slices.Insert(rt, k, t)
		in = slices.Insert(in, k, splineAt(&spline, times, t))
	}
	return rt, in, nil
}

// splineAt evaluates the spline at x. Outside the fitted range the cubic
// of the boundary segment is continued.
func splineAt(s *interp.NaturalCubic, xs []float64, x float64) float64 {
	n := len(xs)
	switch {
	case x < xs[0]:
		return extrapolate(s, xs[0], xs[1], x)
	case x > xs[n-1]:
		return extrapolate(s, xs[n-2], xs[n-1], x)
	}
	return s.Predict(x)
}

// extrapolate evaluates at x the cubic through four points of the spline
// segment [a, b]
func extrapolate(s *interp.NaturalCubic, a, b, x float64) float64 {
	h := (b - a) / 3
	nodes := [4]float64{a, a + h, a + 2*h, b}
	var sum float64
	for i, xi := range nodes {
		w := s.Predict(xi)
		for j, xj := range nodes {
			if j != i {
				w *= (x - xj) / (xi - xj)
			}
		}
		sum += w
	}
	return sum
}
