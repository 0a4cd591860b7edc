// Package irt selects the most likely elution peak of every iRT peptide.
//
// Each candidate peak of a peptide is scored on three properties: how well
// the observed transition intensities match the library (dot product),
// the intensity rank of the candidate and whether its retention time is
// plausible given the neighbouring peptides. The candidate with the
// highest score provides the retention time, FWHM and symmetry of the
// peptide.
package irt

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/524D/swathqc/internal/chrom"
	"github.com/524D/swathqc/internal/run"
)

// Score weights
const (
	dotWeight  = 0.2
	rankWeight = 0.05
	rtWeight   = 0.5
)

// The first iRT peptide is expected to elute close to firstPeptideRT
const (
	firstPeptideRT    = 0.227
	firstPeptideScale = 10
)

// Candidate is the evaluation of one possible peak
type Candidate struct {
	Index         int // into IRTPeak.PossPeaks
	Rank          int // 1 is the most intense base peak
	Transitions   int // transitions with a usable trace
	RetentionTime float64
	FWHM          float64
	Peaksym       float64
	DotProduct    float64
	RTScore       float64
	Score         float64
}

// DotProduct returns the normalized spectral dot product
// (sum t*r)^2 / (sum t^2 * sum r^2), or 0 when either vector is all zeros
func DotProduct(observed, library []float64) float64 {
	var tr, tt, rr float64
	for i := range observed {
		tr += observed[i] * library[i]
		tt += observed[i] * observed[i]
		rr += library[i] * library[i]
	}
	if tt*rr == 0 {
		return 0
	}
	return tr * tr / (tt * rr)
}

// rtScore rates the retention time of candidate peak rt for the peptide at
// position p. Neighbours are read as they are at the time of the call, so
// the previous peptide has already been scored.
func rtScore(peptides []run.IRTPeak, p int, rt float64) float64 {
	switch {
	case p == 0:
		if rt == 0 {
			return 0
		}
		d := rt - firstPeptideRT
		return firstPeptideScale / (d * d)
	case p < len(peptides)-1:
		if peptides[p-1].RetentionTime < rt && rt < peptides[p+1].RetentionTime {
			return 1
		}
	}
	return 0
}

// rankCandidates returns candidate indexes ordered by the intensity of
// their base peak, highest first
func rankCandidates(r *run.Run, pep *run.IRTPeak) ([]int, error) {
	order := make([]int, len(pep.PossPeaks))
	intens := make([]float64, len(pep.PossPeaks))
	for i, pp := range pep.PossPeaks {
		bp, err := r.BasePeakOf(pp)
		if err != nil {
			return nil, fmt.Errorf("peptide %s candidate %d: %w", pep.PeptideID, i, err)
		}
		order[i] = i
		intens[i] = bp.Intensity
	}
	sort.SliceStable(order, func(a, b int) bool { return intens[order[a]] > intens[order[b]] })
	return order, nil
}

// evaluate computes the transition based properties of one candidate. The
// returned candidate has Transitions == 0 when no trace could be analyzed.
func evaluate(pep *run.IRTPeak, pp run.PossiblePeak) Candidate {
	var c Candidate
	var observed, library []float64
	apex := math.Inf(-1)
	for j, tr := range pp.Alltransitions {
		times, smoothed, err := chrom.Prepare(tr)
		if err != nil {
			continue
		}
		s := chrom.Analyze(times, smoothed)
		c.Transitions++
		c.FWHM += s.FWHM
		c.Peaksym += s.Symmetry
		if s.ApexIntensity > apex {
			apex = s.ApexIntensity
			c.RetentionTime = s.ApexTime
		}

		observed = append(observed, smoothed[len(smoothed)/2])
		var lib float64
		if j < len(pep.AssociatedTransitions) {
			lib = pep.AssociatedTransitions[j].ProductIonIntensity
		}
		library = append(library, lib)
	}
	if c.Transitions > 0 {
		c.FWHM /= float64(c.Transitions)
		c.Peaksym /= float64(c.Transitions)
		c.DotProduct = DotProduct(observed, library)
	}
	return c
}

// ScorePeptide scores all candidates of peptide p and stores the metrics
// of the best one in the peptide. ok is false when no candidate scored
// above zero; the peptide is left unchanged in that case.
func ScorePeptide(r *run.Run, p int) (best Candidate, ok bool, err error) {
	pep := &r.IRTPeaks[p]
	order, err := rankCandidates(r, pep)
	if err != nil {
		return Candidate{}, false, err
	}
	for rank, idx := range order {
		c := evaluate(pep, pep.PossPeaks[idx])
		if c.Transitions == 0 {
			continue
		}
		c.Index = idx
		c.Rank = rank + 1
		c.RTScore = rtScore(r.IRTPeaks, p, c.RetentionTime)
		c.Score = dotWeight*c.DotProduct +
			rankWeight/float64(c.Rank)*float64(len(pep.PossPeaks[idx].Alltransitions)) +
			rtWeight*c.RTScore
		if c.Score > best.Score {
			best = c
			ok = true
		}
	}
	if ok {
		pep.RetentionTime = best.RetentionTime
		pep.FWHM = best.FWHM
		pep.Peaksym = best.Peaksym
	}
	return best, ok, nil
}

// ScoreRun scores the iRT peptides of a run in order. Peptides whose
// candidates reference missing base peaks are skipped; the errors are
// returned joined after all peptides were processed.
func ScoreRun(r *run.Run) ([]Candidate, error) {
	res := make([]Candidate, len(r.IRTPeaks))
	var errs []error
	for p := range r.IRTPeaks {
		c, ok, err := ScorePeptide(r, p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			res[p] = c
		}
	}
	return res, errors.Join(errs...)
}
