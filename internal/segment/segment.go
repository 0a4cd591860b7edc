// Package segment divides a run into retention time segments of equal width
package segment

import (
	"errors"
	"math"

	"github.com/524D/swathqc/internal/run"
)

// ErrInvalidDivision means the number of segments is less than 1
var ErrInvalidDivision = errors.New("segment: division must be at least 1")

// ErrEmptyRun means the run has neither base peaks nor scans to derive
// a retention time span from
var ErrEmptyRun = errors.New("segment: no retention times in run")

// Segmenter assigns retention times to segments.
//
// Boundaries are minTime + i*width for i in [0, division). A time at or
// before the first boundary is in segment 0, a time in
// (boundary[i-1], boundary[i]] is in segment i, and a time past the last
// boundary is in segment division. Segment numbers therefore run from
// 0 to division inclusive.
type Segmenter struct {
	Division   int
	MinTime    float64
	MaxTime    float64
	Width      float64
	Boundaries []float64
}

// New creates a segmenter for the span [minTime, maxTime]
func New(minTime, maxTime float64, division int) (*Segmenter, error) {
	if division < 1 {
		return nil, ErrInvalidDivision
	}
	s := &Segmenter{
		Division:   division,
		MinTime:    minTime,
		MaxTime:    maxTime,
		Width:      (maxTime - minTime) / float64(division),
		Boundaries: make([]float64, division),
	}
	for i := range s.Boundaries {
		s.Boundaries[i] = minTime + s.Width*float64(i)
	}
	return s, nil
}

// ForRun creates a segmenter from the retention time span of the base
// peaks. Runs without base peaks use the scan start times instead.
func ForRun(r *run.Run, division int) (*Segmenter, error) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range r.BasePeaks {
		lo = math.Min(lo, r.BasePeaks[i].RetentionTime)
		hi = math.Max(hi, r.BasePeaks[i].RetentionTime)
	}
	if len(r.BasePeaks) == 0 {
		for _, scans := range [][]run.Scan{r.Ms1Scans, r.Ms2Scans} {
			for i := range scans {
				lo = math.Min(lo, scans[i].ScanStartTime)
				hi = math.Max(hi, scans[i].ScanStartTime)
			}
		}
	}
	if math.IsInf(lo, 1) {
		return nil, ErrEmptyRun
	}
	return New(lo, hi, division)
}

// Segment returns the segment number for retention time t
func (s *Segmenter) Segment(t float64) int {
	if t <= s.Boundaries[0] {
		return 0
	}
	for i := 1; i < len(s.Boundaries); i++ {
		if t > s.Boundaries[i-1] && t <= s.Boundaries[i] {
			return i
		}
	}
	return s.Division
}

// SwathSizes holds the extreme isolation window widths of the MS2 scans
type SwathSizes struct {
	Smallest float64
	Largest  float64
}

// Difference returns the largest minus the smallest window width
func (w SwathSizes) Difference() float64 {
	return w.Largest - w.Smallest
}

// Assign sets the segment of every base peak and scan of the run. The
// smallest and largest MS2 isolation window widths are determined in the
// same pass over the MS2 scans.
func (s *Segmenter) Assign(r *run.Run) SwathSizes {
	for i := range r.BasePeaks {
		r.BasePeaks[i].RTSegment = s.Segment(r.BasePeaks[i].RetentionTime)
	}
	for i := range r.Ms1Scans {
		r.Ms1Scans[i].RTSegment = s.Segment(r.Ms1Scans[i].ScanStartTime)
	}

	var w SwathSizes
	for i := range r.Ms2Scans {
		scan := &r.Ms2Scans[i]
		size := scan.WindowWidth()
		if i == 0 || size > w.Largest {
			w.Largest = size
		}
		if i == 0 || size < w.Smallest {
			w.Smallest = size
		}
		scan.RTSegment = s.Segment(scan.ScanStartTime)
	}
	return w
}
