package chrom

import (
	"math"

	"github.com/524D/swathqc/internal/run"

	"gonum.org/v1/gonum/floats"
)

// noBaseline is used as baseline when a trace has no positive intensity
const noBaseline = float64(math.MinInt32)

// Shape holds the shape metrics of one smoothed trace
type Shape struct {
	ApexIndex     int
	ApexTime      float64
	ApexIntensity float64
	Baseline      float64
	FWHM          float64 // width at 50% height above baseline
	Width5        float64 // width at 5% height above baseline
	Right5        float64 // right boundary of the 5% width
	Symmetry      float64
	Capacity      float64
}

// Baseline returns the lowest positive intensity
func Baseline(intens []float64) float64 {
	b := math.Inf(1)
	for _, v := range intens {
		if v > 0 && v < b {
			b = v
		}
	}
	if math.IsInf(b, 1) {
		return noBaseline
	}
	return b
}

// widthAt returns the retention times where the intensity first drops below
// threshold, searching left and right from the apex. When no such point
// exists on a side, the outermost time of that side is used.
func widthAt(times, intens []float64, apex int, threshold float64) (left, right float64) {
	left = times[0]
	for i := apex; i >= 0; i-- {
		if intens[i] < threshold {
			left = times[i]
			break
		}
	}
	right = times[len(times)-1]
	for i := apex; i < len(intens); i++ {
		if intens[i] < threshold {
			right = times[i]
			break
		}
	}
	return left, right
}

// Analyze computes shape metrics of a smoothed trace. times and smoothed
// must have the same, non-zero length. Zero widths are not guarded:
// the capacity and symmetry become Inf or NaN in that case.
func Analyze(times, smoothed []float64) Shape {
	var s Shape
	s.ApexIndex = floats.MaxIdx(smoothed)
	s.ApexIntensity = smoothed[s.ApexIndex]
	s.ApexTime = times[s.ApexIndex]
	s.Baseline = Baseline(smoothed)

	height := s.ApexIntensity - s.Baseline
	l50, r50 := widthAt(times, smoothed, s.ApexIndex, s.Baseline+height/2)
	s.FWHM = r50 - l50
	l5, r5 := widthAt(times, smoothed, s.ApexIndex, s.Baseline+height/20)
	s.Width5 = r5 - l5
	s.Right5 = r5

	s.Symmetry = s.Width5 / (2 * math.Abs(s.ApexTime-s.Right5))
	s.Capacity = 1 + s.ApexTime/s.FWHM
	return s
}

// collapse merges points with equal retention time, keeping the highest
// intensity. The trace must be sorted.
func collapse(tr run.Trace) ([]float64, []float64) {
	times := make([]float64, 0, len(tr))
	intens := make([]float64, 0, len(tr))
	for i, p := range tr {
		if i > 0 && p.RetentionTime == times[len(times)-1] {
			if p.Intensity > intens[len(intens)-1] {
				intens[len(intens)-1] = p.Intensity
			}
			continue
		}
		times = append(times, p.RetentionTime)
		intens = append(intens, p.Intensity)
	}
	return times, intens
}

// Prepare sorts a trace, interpolates it when it is short and smooths it.
// It returns the time axis together with the smoothed intensities.
func Prepare(tr run.Trace) ([]float64, []float64, error) {
	sorted := tr.Sorted()
	n := sorted.DistinctTimes()
	if n < 2 {
		return nil, nil, ErrInsufficientData
	}
	var times, intens []float64
	if n == len(sorted) {
		times, intens = sorted.Times(), sorted.Intensities()
	} else {
		times, intens = collapse(sorted)
	}
	times, intens, err := Interpolate(times, intens)
	if err != nil {
		return nil, nil, err
	}
	return times, Smooth(intens), nil
}

// AnalyzeTrace runs the complete shape pipeline on one trace
func AnalyzeTrace(tr run.Trace) (Shape, error) {
	times, smoothed, err := Prepare(tr)
	if err != nil {
		return Shape{}, err
	}
	return Analyze(times, smoothed), nil
}

// ApplyToBasePeak computes the shape of a base peak and stores FWHM,
// symmetry and capacity. Every evaluation also appends FWHM, symmetry and
// baseline width to the series of the peak. The base peak is not modified
// when its trace has too few points.
func ApplyToBasePeak(bp *run.BasePeak) error {
	s, err := AnalyzeTrace(bp.Trace)
	if err != nil {
		return err
	}
	bp.FWHM = s.FWHM
	bp.Peaksym = s.Symmetry
	bp.PeakCapacity = s.Capacity
	bp.FWHMs = append(bp.FWHMs, s.FWHM)
	bp.Peaksyms = append(bp.Peaksyms, s.Symmetry)
	bp.FullWidthBaselines = append(bp.FullWidthBaselines, s.Width5)
	return nil
}
