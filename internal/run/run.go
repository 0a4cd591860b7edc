// Package run holds the in-memory representation of one SWATH acquisition.
//
// Entities are stored in slices owned by Run and refer to each other by
// index, e.g. PossiblePeak.BasePeak is an index into Run.BasePeaks.
package run

import (
	"errors"
	"sort"
)

// SpectrumPoint is a single point in retention time / m/z space.
// Points are always stored by value in contiguous slices.
type SpectrumPoint struct {
	RetentionTime float64 // minutes
	Mz            float64
	Intensity     float64
}

// Trace is an extracted chromatogram: points ordered by retention time
type Trace []SpectrumPoint

// Scan contains the per-spectrum information needed for the metrics
type Scan struct {
	Index                      int // position of the spectrum in the source file
	ID                         string
	MsLevel                    int
	ScanStartTime              float64 // minutes
	IsolationWindowTargetMz    float64
	IsolationWindowLowerOffset float64
	IsolationWindowUpperOffset float64
	TotalIonCurrent            float64
	Density                    int // number of peaks
	Cycle                      int
	BasePeakMz                 float64
	BasePeakIntensity          float64
	RTSegment                  int // assigned by the segmenter
}

// BasePeak is a chromatographic peak that was detected for one m/z
type BasePeak struct {
	Mz            float64
	RetentionTime float64
	Intensity     float64
	Trace         Trace

	// Metric series collected over repeated evaluations of the same peak
	BpkRTs             []float64
	FWHMs              []float64
	Peaksyms           []float64
	Intensities        []float64
	FullWidthBaselines []float64

	FWHM         float64
	Peaksym      float64
	PeakCapacity float64
	RTSegment    int
}

// Transition is a library precursor/product pair of an iRT peptide,
// together with its extracted trace
type Transition struct {
	ID                  string
	PrecursorMz         float64
	ProductMz           float64
	ProductIonIntensity float64 // library intensity
	Trace               Trace
}

// PossiblePeak is one candidate elution of an iRT peptide
type PossiblePeak struct {
	BasePeak       int     // index into Run.BasePeaks
	Alltransitions []Trace // one trace per transition of the peptide
}

// IRTPeak is a reference peptide with its candidate peaks
type IRTPeak struct {
	PeptideID             string
	Sequence              string
	Mz                    float64
	ExpectedRetentionTime float64
	AssociatedTransitions []Transition
	PossPeaks             []PossiblePeak

	// Set by the iRT scorer
	RetentionTime float64
	FWHM          float64
	Peaksym       float64
}

// AnalysisSettings are the read-only analysis parameters
type AnalysisSettings struct {
	RtTolerance   float64 // minutes
	MassTolerance float64 // m/z units
}

// Run is one acquisition. MS2 scans must be frozen (see Ms2Collector)
// before analysis starts.
type Run struct {
	ID                  string
	SourceFileNames     []string
	SourceFileChecksums []string
	AnalysisSettings    AnalysisSettings
	Ms1Scans            []Scan
	Ms2Scans            []Scan
	BasePeaks           []BasePeak
	IRTPeaks            []IRTPeak
	StartTime           float64
	LastScanTime        float64
	UniprotIDs          []string // accessions of the library proteins
}

// ErrInvalidBasePeak means a candidate references a non-existing base peak
var ErrInvalidBasePeak = errors.New("run: invalid base peak index")

// BasePeakOf returns the base peak referenced by a candidate
func (r *Run) BasePeakOf(p PossiblePeak) (*BasePeak, error) {
	if p.BasePeak < 0 || p.BasePeak >= len(r.BasePeaks) {
		return nil, ErrInvalidBasePeak
	}
	return &r.BasePeaks[p.BasePeak], nil
}

// Times returns the retention times of the trace
func (t Trace) Times() []float64 {
	rt := make([]float64, len(t))
	for i, p := range t {
		rt[i] = p.RetentionTime
	}
	return rt
}

// Intensities returns the intensities of the trace
func (t Trace) Intensities() []float64 {
	in := make([]float64, len(t))
	for i, p := range t {
		in[i] = p.Intensity
	}
	return in
}

// Sorted returns a copy of the trace ordered by retention time.
// The original trace is left untouched.
func (t Trace) Sorted() Trace {
	s := make(Trace, len(t))
	copy(s, t)
	sort.SliceStable(s, func(i, j int) bool { return s[i].RetentionTime < s[j].RetentionTime })
	return s
}

// DistinctTimes returns the number of different retention times
// in a trace that is sorted by retention time
func (t Trace) DistinctTimes() int {
	n := 0
	for i := range t {
		if i == 0 || t[i].RetentionTime != t[i-1].RetentionTime {
			n++
		}
	}
	return n
}

// WindowWidth is the m/z width of the isolation window of a scan
func (s *Scan) WindowWidth() float64 {
	return s.IsolationWindowTargetMz + s.IsolationWindowUpperOffset -
		(s.IsolationWindowTargetMz - s.IsolationWindowLowerOffset)
}
