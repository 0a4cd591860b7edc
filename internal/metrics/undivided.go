package metrics

import (
	"github.com/524D/swathqc/internal/run"
	"github.com/524D/swathqc/internal/segment"
)

// Undivided holds the metrics computed over the whole run
type Undivided struct {
	RTDuration          float64 `json:"rtDuration"` // minutes
	SwathSizeDifference float64 `json:"swathSizeDifference"`
	MS1Count            int     `json:"ms1Count"`
	MS2Count            int     `json:"ms2Count"`
	NumOfSwathPerCycle  int     `json:"numOfSwathPerCycle"` // maximum over cycles
	CycleTime50         float64 `json:"cycleTime50"`
	CycleTimeIQR        float64 `json:"cycleTimeIQR"`
	MS2Density50        float64 `json:"ms2Density50"`
	MS2DensityIQR       float64 `json:"ms2DensityIQR"`
	MeanFWHM            float64 `json:"meanFWHM"`
	MeanPeaksym         float64 `json:"meanPeaksym"`
	MeanPeakCapacity    float64 `json:"meanPeakCapacity"`
	IRTPeptidesFound    int     `json:"irtPeptidesFound"`
}

// cycleSpan tracks the first and last MS2 start time of one cycle
type cycleSpan struct {
	first, last float64
	ms2         int
}

// cycleTimes returns the time between the first and the last MS2 scan of
// every cycle, ordered by cycle number, and the largest number of MS2
// scans in a cycle
func cycleTimes(r *run.Run) ([]float64, int) {
	spans := make(map[int]*cycleSpan)
	var order []int
	maxMs2 := 0
	for i := range r.Ms2Scans {
		s := &r.Ms2Scans[i]
		c, ok := spans[s.Cycle]
		if !ok {
			c = &cycleSpan{first: s.ScanStartTime, last: s.ScanStartTime}
			spans[s.Cycle] = c
			order = append(order, s.Cycle)
		}
		c.first = min(c.first, s.ScanStartTime)
		c.last = max(c.last, s.ScanStartTime)
		c.ms2++
		maxMs2 = max(maxMs2, c.ms2)
	}

	times := make([]float64, 0, len(order))
	for _, k := range order {
		times = append(times, spans[k].last-spans[k].first)
	}
	return times, maxMs2
}

// undivided computes the run level metrics. The retention time duration
// is the base peak span the segments were laid over.
func undivided(r *run.Run, seg *segment.Segmenter, sizes segment.SwathSizes) Undivided {
	u := Undivided{
		RTDuration:          seg.MaxTime - seg.MinTime,
		SwathSizeDifference: sizes.Difference(),
		MS1Count:            len(r.Ms1Scans),
		MS2Count:            len(r.Ms2Scans),
	}

	var cycles []float64
	cycles, u.NumOfSwathPerCycle = cycleTimes(r)
	u.CycleTime50, u.CycleTimeIQR = quartiles(cycles)

	dens := make([]float64, len(r.Ms2Scans))
	for i := range r.Ms2Scans {
		dens[i] = float64(r.Ms2Scans[i].Density)
	}
	u.MS2Density50, u.MS2DensityIQR = quartiles(dens)

	fwhm, sym, capacity := basePeakSeries(r.BasePeaks)
	u.MeanFWHM = finiteMean(fwhm)
	u.MeanPeaksym = finiteMean(sym)
	u.MeanPeakCapacity = finiteMean(capacity)

	for i := range r.IRTPeaks {
		if r.IRTPeaks[i].RetentionTime != 0 {
			u.IRTPeptidesFound++
		}
	}
	return u
}

// basePeakSeries collects the shape metrics of base peaks that have them
func basePeakSeries(peaks []run.BasePeak) (fwhm, sym, capacity []float64) {
	for i := range peaks {
		bp := &peaks[i]
		if bp.FWHM == 0 && bp.PeakCapacity == 0 {
			continue
		}
		fwhm = append(fwhm, bp.FWHM)
		sym = append(sym, bp.Peaksym)
		capacity = append(capacity, bp.PeakCapacity)
	}
	return fwhm, sym, capacity
}
