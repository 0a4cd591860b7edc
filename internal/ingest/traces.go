package ingest

import (
	"math"

	"github.com/524D/swathqc/internal/mzml"
	"github.com/524D/swathqc/internal/run"
	"github.com/524D/swathqc/internal/traml"
)

// extract builds a trace of the most intense peak in [mzMin, mzMax] over
// all scans accepted by keep. peaks[i] holds the peaks of scans[i].
func extract(scans []run.Scan, peaks [][]mzml.Peak, keep func(*run.Scan) bool, mzMin, mzMax float64) run.Trace {
	var tr run.Trace
	for i := range scans {
		s := &scans[i]
		if !keep(s) {
			continue
		}
		p := maxPeakInMzWindow(mzMin, mzMax, peaks[i])
		mz := p.Mz
		if p.Intens == 0 {
			mz = (mzMin + mzMax) / 2
		}
		tr = append(tr, run.SpectrumPoint{RetentionTime: s.ScanStartTime, Mz: mz, Intensity: p.Intens})
	}
	return tr
}

func inRT(center, tol float64) func(*run.Scan) bool {
	return func(s *run.Scan) bool { return math.Abs(s.ScanStartTime-center) <= tol }
}

// traceBasePeaks detects base peaks in the MS1 scans and extracts their
// traces. Scan base peaks within the tolerances of an earlier one are
// merged into it; the most intense scan determines the retention time.
func traceBasePeaks(ms1 []run.Scan, peaks [][]mzml.Peak, rtTol, mzTol float64) []run.BasePeak {
	var bps []run.BasePeak
	for i := range ms1 {
		s := &ms1[i]
		if s.BasePeakIntensity <= 0 {
			continue
		}
		found := false
		for j := range bps {
			bp := &bps[j]
			if math.Abs(bp.Mz-s.BasePeakMz) <= mzTol && math.Abs(bp.RetentionTime-s.ScanStartTime) <= rtTol {
				if s.BasePeakIntensity > bp.Intensity {
					bp.Intensity = s.BasePeakIntensity
					bp.RetentionTime = s.ScanStartTime
				}
				found = true
				break
			}
		}
		if !found {
			bps = append(bps, run.BasePeak{
				Mz:            s.BasePeakMz,
				RetentionTime: s.ScanStartTime,
				Intensity:     s.BasePeakIntensity,
			})
		}
	}

	for j := range bps {
		bp := &bps[j]
		bp.Trace = extract(ms1, peaks, inRT(bp.RetentionTime, rtTol), bp.Mz-mzTol, bp.Mz+mzTol)
		for _, p := range bp.Trace {
			bp.BpkRTs = append(bp.BpkRTs, p.RetentionTime)
			bp.Intensities = append(bp.Intensities, p.Intensity)
		}
	}
	return bps
}

// covers reports whether the isolation window of an MS2 scan contains mz
func covers(s *run.Scan, mz float64) bool {
	return mz >= s.IsolationWindowTargetMz-s.IsolationWindowLowerOffset &&
		mz <= s.IsolationWindowTargetMz+s.IsolationWindowUpperOffset
}

// irtCandidates creates the iRT peptides of the library with a candidate
// peak for every base peak that matches the precursor m/z. Transition
// traces are extracted from the MS2 scans whose isolation window contains
// the precursor.
func irtCandidates(r *run.Run, lib *traml.Library, ms2Peaks [][]mzml.Peak, rtTol, mzTol float64) []run.IRTPeak {
	var res []run.IRTPeak
	for _, pep := range lib.IRTPeptides() {
		trs := lib.PeptideTransitions(pep.ID)
		if len(trs) == 0 {
			continue
		}
		precursor := trs[0].PrecursorMz
		window := func(s *run.Scan) bool { return covers(s, precursor) }

		irt := run.IRTPeak{
			PeptideID:             pep.ID,
			Sequence:              pep.Sequence,
			Mz:                    precursor,
			ExpectedRetentionTime: pep.RetentionTime,
		}
		for _, t := range trs {
			irt.AssociatedTransitions = append(irt.AssociatedTransitions, run.Transition{
				ID:                  t.ID,
				PrecursorMz:         t.PrecursorMz,
				ProductMz:           t.ProductMz,
				ProductIonIntensity: t.ProductIonIntensity,
				Trace:               extract(r.Ms2Scans, ms2Peaks, window, t.ProductMz-mzTol, t.ProductMz+mzTol),
			})
		}

		for bi := range r.BasePeaks {
			bp := &r.BasePeaks[bi]
			if math.Abs(bp.Mz-precursor) > mzTol {
				continue
			}
			near := inRT(bp.RetentionTime, rtTol)
			keep := func(s *run.Scan) bool { return window(s) && near(s) }
			pp := run.PossiblePeak{BasePeak: bi}
			for _, t := range trs {
				pp.Alltransitions = append(pp.Alltransitions,
					extract(r.Ms2Scans, ms2Peaks, keep, t.ProductMz-mzTol, t.ProductMz+mzTol))
			}
			irt.PossPeaks = append(irt.PossPeaks, pp)
		}
		res = append(res, irt)
	}
	return res
}
