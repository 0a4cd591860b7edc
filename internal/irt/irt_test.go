package irt

import (
	"math"
	"testing"

	"github.com/524D/swathqc/internal/run"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// peakTrace returns 101 points with times 0.0 .. 10.0 and a triangular
// peak of the given height at apex
func peakTrace(apex int, height float64) run.Trace {
	tr := make(run.Trace, 101)
	for i := range tr {
		tr[i] = run.SpectrumPoint{
			RetentionTime: float64(i) * 0.1,
			Intensity:     math.Max(0, height*(1-math.Abs(float64(i-apex))/20)),
		}
	}
	return tr
}

func libraryTransitions(intens ...float64) []run.Transition {
	tr := make([]run.Transition, len(intens))
	for i, v := range intens {
		tr[i] = run.Transition{ProductIonIntensity: v}
	}
	return tr
}

// testRun has two base peaks; the second is the most intense. Peptide 1
// has an early candidate on base peak 0 and a candidate on base peak 1 at
// 5 minutes whose transitions match the library.
func testRun() *run.Run {
	early := run.PossiblePeak{BasePeak: 0, Alltransitions: []run.Trace{peakTrace(4, 100), peakTrace(4, 50)}}
	late := run.PossiblePeak{BasePeak: 1, Alltransitions: []run.Trace{peakTrace(50, 100), peakTrace(50, 50)}}
	return &run.Run{
		BasePeaks: []run.BasePeak{{Intensity: 100}, {Intensity: 200}},
		IRTPeaks: []run.IRTPeak{
			{PeptideID: "first", AssociatedTransitions: libraryTransitions(100, 50),
				PossPeaks: []run.PossiblePeak{early, late}},
			{PeptideID: "middle", AssociatedTransitions: libraryTransitions(100, 50),
				PossPeaks: []run.PossiblePeak{early, late}},
			{PeptideID: "last", RetentionTime: 8},
		},
	}
}

func TestDotProduct(t *testing.T) {
	assert.InDelta(t, 1.0, DotProduct([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-12)
	assert.Equal(t, 0.0, DotProduct([]float64{1, 0}, []float64{0, 1}))
	assert.Equal(t, 0.0, DotProduct([]float64{0, 0}, []float64{1, 1}))
	assert.Equal(t, 0.0, DotProduct(nil, nil))
	assert.InDelta(t, 0.5, DotProduct([]float64{1, 0}, []float64{1, 1}), 1e-12)
}

func TestRTScore(t *testing.T) {
	peps := []run.IRTPeak{{}, {}, {RetentionTime: 8}}
	assert.Equal(t, 0.0, rtScore(peps, 0, 0))
	assert.InDelta(t, 10.0, rtScore(peps, 0, 1.227), 1e-9)

	peps[0].RetentionTime = 2
	assert.Equal(t, 1.0, rtScore(peps, 1, 5))
	assert.Equal(t, 0.0, rtScore(peps, 1, 2))
	assert.Equal(t, 0.0, rtScore(peps, 1, 9))
	// The last peptide has no RT plausibility score
	assert.Equal(t, 0.0, rtScore(peps, 2, 5))
}

func TestScorePeptideFirst(t *testing.T) {
	r := testRun()
	best, ok, err := ScorePeptide(r, 0)
	require.NoError(t, err)
	require.True(t, ok)

	// The early candidate is close to the expected time of the first
	// peptide, which outweighs its lower rank and poor dot product
	assert.Equal(t, 0, best.Index)
	assert.Equal(t, 2, best.Rank)
	assert.Equal(t, 2, best.Transitions)
	assert.InDelta(t, 0.4, best.RetentionTime, 1e-9)
	assert.Greater(t, best.RTScore, 100.0)

	pep := r.IRTPeaks[0]
	assert.Equal(t, best.RetentionTime, pep.RetentionTime)
	assert.Equal(t, best.FWHM, pep.FWHM)
	assert.Equal(t, best.Peaksym, pep.Peaksym)
	assert.Greater(t, pep.FWHM, 0.0)
}

func TestScorePeptideInterior(t *testing.T) {
	r := testRun()
	r.IRTPeaks[0].RetentionTime = 2

	best, ok, err := ScorePeptide(r, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, best.Index)
	assert.Equal(t, 1, best.Rank)
	assert.InDelta(t, 5.0, best.RetentionTime, 1e-9)
	assert.Equal(t, 1.0, best.RTScore)
	assert.InDelta(t, 1.0, best.DotProduct, 1e-9)
	assert.InDelta(t, 0.2+0.05*2+0.5, best.Score, 1e-9)
	assert.InDelta(t, 5.0, r.IRTPeaks[1].RetentionTime, 1e-9)
}

func TestScorePeptidePrefersIntenseBasePeak(t *testing.T) {
	same := []run.Trace{peakTrace(50, 100)}
	r := &run.Run{
		BasePeaks: []run.BasePeak{{Intensity: 10}, {Intensity: 20}},
		IRTPeaks: []run.IRTPeak{{
			AssociatedTransitions: libraryTransitions(1),
			PossPeaks: []run.PossiblePeak{
				{BasePeak: 0, Alltransitions: same},
				{BasePeak: 1, Alltransitions: same},
			},
		}},
	}
	best, ok, err := ScorePeptide(r, 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, best.Index)
	assert.Equal(t, 1, best.Rank)
}

func TestScorePeptideNoUsableCandidate(t *testing.T) {
	short := run.Trace{{RetentionTime: 1, Intensity: 5}}
	r := &run.Run{
		BasePeaks: []run.BasePeak{{Intensity: 10}},
		IRTPeaks: []run.IRTPeak{{
			FWHM:      3,
			PossPeaks: []run.PossiblePeak{{BasePeak: 0, Alltransitions: []run.Trace{short, nil}}},
		}},
	}
	_, ok, err := ScorePeptide(r, 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 3.0, r.IRTPeaks[0].FWHM)
	assert.Equal(t, 0.0, r.IRTPeaks[0].RetentionTime)
}

func TestScoreRun(t *testing.T) {
	r := testRun()
	r.IRTPeaks = append(r.IRTPeaks, run.IRTPeak{
		PeptideID: "broken",
		PossPeaks: []run.PossiblePeak{{BasePeak: 7}},
	})

	res, err := ScoreRun(r)
	assert.ErrorIs(t, err, run.ErrInvalidBasePeak)
	require.Len(t, res, 4)

	// The first peptide picks the early candidate; with 0.4 before it and
	// 8 after it, the late candidate is plausible for the middle peptide
	assert.InDelta(t, 0.4, r.IRTPeaks[0].RetentionTime, 1e-9)
	assert.InDelta(t, 5.0, r.IRTPeaks[1].RetentionTime, 1e-9)
	assert.Equal(t, 1, res[1].Index)
	assert.Equal(t, Candidate{}, res[3])
}
