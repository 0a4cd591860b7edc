package metrics

import (
	"math"
	"sort"

	"github.com/524D/swathqc/internal/run"
	"github.com/524D/swathqc/internal/segment"
)

// Segment holds the metrics of one retention time segment
type Segment struct {
	Segment          int     `json:"segment"`
	StartTime        float64 `json:"startTime"` // lower boundary, minutes
	MS1Count         int     `json:"ms1Count"`
	MS2Count         int     `json:"ms2Count"`
	BasePeakCount    int     `json:"basePeakCount"`
	TICChange50      float64 `json:"ticChange50"`
	TICChangeIQR     float64 `json:"ticChangeIQR"`
	MeanFWHM         float64 `json:"meanFWHM"`
	MeanPeaksym      float64 `json:"meanPeaksym"`
	MeanPeakCapacity float64 `json:"meanPeakCapacity"`
}

// ticChanges returns the absolute TIC differences between consecutive
// MS2 scans of a segment ordered by start time
func ticChanges(scans []*run.Scan) []float64 {
	sort.SliceStable(scans, func(i, j int) bool { return scans[i].ScanStartTime < scans[j].ScanStartTime })
	if len(scans) < 2 {
		return nil
	}
	d := make([]float64, len(scans)-1)
	for i := 1; i < len(scans); i++ {
		d[i-1] = math.Abs(scans[i].TotalIonCurrent - scans[i-1].TotalIonCurrent)
	}
	return d
}

// divided computes the metrics of every segment 0..Division. Segments
// must have been assigned before.
func divided(r *run.Run, seg *segment.Segmenter) []Segment {
	n := seg.Division + 1
	ms1 := make([]int, n)
	ms2 := make([][]*run.Scan, n)
	peaks := make([][]run.BasePeak, n)
	res := make([]Segment, n)
	for i := range res {
		res[i].Segment = i
		res[i].StartTime = seg.MinTime
		if i > 0 {
			res[i].StartTime = seg.Boundaries[i-1]
		}
	}

	for i := range r.Ms1Scans {
		ms1[r.Ms1Scans[i].RTSegment]++
	}
	for i := range r.Ms2Scans {
		s := &r.Ms2Scans[i]
		ms2[s.RTSegment] = append(ms2[s.RTSegment], s)
	}
	for i := range r.BasePeaks {
		bp := r.BasePeaks[i]
		peaks[bp.RTSegment] = append(peaks[bp.RTSegment], bp)
	}

	for i := range res {
		res[i].MS1Count = ms1[i]
		res[i].MS2Count = len(ms2[i])
		res[i].BasePeakCount = len(peaks[i])

		changes := ticChanges(ms2[i])
		res[i].TICChange50 = finiteMean(changes)
		_, res[i].TICChangeIQR = quartiles(changes)

		fwhm, sym, capacity := basePeakSeries(peaks[i])
		res[i].MeanFWHM = finiteMean(fwhm)
		res[i].MeanPeaksym = finiteMean(sym)
		res[i].MeanPeakCapacity = finiteMean(capacity)
	}
	return res
}
