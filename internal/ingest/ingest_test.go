package ingest

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/524D/swathqc/internal/mzml"
	"github.com/524D/swathqc/internal/mzml/mzmltest"
	"github.com/524D/swathqc/internal/run"
	"github.com/524D/swathqc/internal/traml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testLibrary = `<?xml version="1.0" encoding="UTF-8"?>
<TraML xmlns="http://psi.hupo.org/ms/traml">
  <ProteinList><Protein id="iRT"/><Protein id="sp|P12345|ALBU_HUMAN"/></ProteinList>
  <CompoundList>
    <Peptide id="pep1" sequence="LGGNEQVTR">
      <ProteinRef ref="iRT"/>
      <RetentionTimeList><RetentionTime>
        <cvParam accession="MS:1000896" value="-28.3"/>
      </RetentionTime></RetentionTimeList>
    </Peptide>
  </CompoundList>
  <TransitionList>
    <Transition id="t1" peptideRef="pep1">
      <Precursor><cvParam accession="MS:1000827" value="410"/></Precursor>
      <Product><cvParam accession="MS:1000827" value="500"/></Product>
      <cvParam accession="MS:1001226" value="100"/>
    </Transition>
    <Transition id="t2" peptideRef="pep1">
      <Precursor><cvParam accession="MS:1000827" value="410"/></Precursor>
      <Product><cvParam accession="MS:1000827" value="600"/></Product>
      <cvParam accession="MS:1001226" value="50"/>
    </Transition>
  </TransitionList>
</TraML>
`

const cycles = 20

func gauss(c int) float64 {
	x := (float64(c) - 10) / 3
	return 1000 * math.Exp(-x*x/2)
}

// testSpectra returns cycles of one MS1 scan and two MS2 scans. The MS1
// scans contain an eluting peak at m/z 410 and a constant peak at 300.
func testSpectra() []mzmltest.Spectrum {
	var specs []mzmltest.Spectrum
	for c := 0; c < cycles; c++ {
		rt := float64(c) * 0.1
		g := gauss(c)
		specs = append(specs,
			mzmltest.Spectrum{MsLevel: 1, RetentionTime: rt, TIC: g + 10,
				Mz: []float64{300, 410}, Intensity: []float64{10, g}},
			mzmltest.Spectrum{MsLevel: 2, RetentionTime: rt + 0.02, TIC: 1.5 * g,
				Mz: []float64{500, 600}, Intensity: []float64{g, g / 2},
				TargetMz: 412.5, LowerOffset: 12.5, UpperOffset: 12.5},
			mzmltest.Spectrum{MsLevel: 2, RetentionTime: rt + 0.04, TIC: 5,
				Mz: []float64{520}, Intensity: []float64{5},
				TargetMz: 437.5, LowerOffset: 12.5, UpperOffset: 12.5},
		)
	}
	return specs
}

func testOptions(t *testing.T) Options {
	return Options{RtTolerance: 2.5, MassTolerance: 0.05, Workers: 4, Log: zaptest.NewLogger(t)}
}

func readTestMzML(t *testing.T) *mzml.MzML {
	t.Helper()
	f, err := mzml.Read(bytes.NewReader(mzmltest.Build("swath1", testSpectra(), true)))
	require.NoError(t, err)
	return &f
}

func TestFromMzML(t *testing.T) {
	lib, err := traml.Read(strings.NewReader(testLibrary))
	require.NoError(t, err)

	r, err := FromMzML(context.Background(), readTestMzML(t), &lib, testOptions(t))
	require.NoError(t, err)

	assert.Equal(t, "swath1", r.ID)
	require.Len(t, r.Ms1Scans, cycles)
	require.Len(t, r.Ms2Scans, 2*cycles)
	assert.InDelta(t, 0.0, r.StartTime, 1e-9)
	assert.InDelta(t, 1.94, r.LastScanTime, 1e-9)
	assert.Equal(t, run.AnalysisSettings{RtTolerance: 2.5, MassTolerance: 0.05}, r.AnalysisSettings)
	assert.Equal(t, []string{"P12345"}, r.UniprotIDs)

	for i, s := range r.Ms2Scans {
		assert.Equal(t, 2, s.MsLevel)
		assert.Equal(t, i/2+1, s.Cycle, "MS2 scan %d", i)
		if i > 0 {
			assert.Less(t, r.Ms2Scans[i-1].Index, s.Index)
		}
	}
	assert.Equal(t, 1, r.Ms1Scans[0].Cycle)
	assert.Equal(t, 2, r.Ms1Scans[0].Density)
	assert.Equal(t, 12.5, r.Ms2Scans[1].IsolationWindowLowerOffset)
	assert.Equal(t, 437.5, r.Ms2Scans[1].IsolationWindowTargetMz)

	// The first scan's base peak is the constant peak, all others the
	// eluting one
	require.Len(t, r.BasePeaks, 2)
	assert.Equal(t, 300.0, r.BasePeaks[0].Mz)
	bp := r.BasePeaks[1]
	assert.Equal(t, 410.0, bp.Mz)
	assert.InDelta(t, 1.0, bp.RetentionTime, 1e-9)
	assert.InDelta(t, 1000, bp.Intensity, 1e-6)
	assert.Len(t, bp.Trace, cycles)
	assert.Len(t, bp.BpkRTs, cycles)

	require.Len(t, r.IRTPeaks, 1)
	irt := r.IRTPeaks[0]
	assert.Equal(t, "pep1", irt.PeptideID)
	assert.Equal(t, 410.0, irt.Mz)
	assert.Equal(t, -28.3, irt.ExpectedRetentionTime)
	require.Len(t, irt.AssociatedTransitions, 2)
	assert.Equal(t, 50.0, irt.AssociatedTransitions[1].ProductIonIntensity)
	assert.Len(t, irt.AssociatedTransitions[0].Trace, cycles)

	require.Len(t, irt.PossPeaks, 1)
	pp := irt.PossPeaks[0]
	assert.Equal(t, 1, pp.BasePeak)
	require.Len(t, pp.Alltransitions, 2)
	assert.Len(t, pp.Alltransitions[0], cycles)
	assert.InDelta(t, 500, pp.Alltransitions[1][10].Intensity, 1e-6)
}

func TestFromMzMLWithoutLibrary(t *testing.T) {
	r, err := FromMzML(context.Background(), readTestMzML(t), nil, testOptions(t))
	require.NoError(t, err)
	assert.Empty(t, r.IRTPeaks)
	assert.NotEmpty(t, r.BasePeaks)
}

func TestFromMzMLErrors(t *testing.T) {
	f, err := mzml.Read(bytes.NewReader(mzmltest.Build("empty", nil, false)))
	require.NoError(t, err)
	_, err = FromMzML(context.Background(), &f, nil, Options{})
	assert.ErrorIs(t, err, ErrNoSpectra)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = FromMzML(ctx, readTestMzML(t), nil, Options{})
	assert.ErrorIs(t, err, context.Canceled)

	// An MS2 spectrum without isolation window
	doc := strings.Replace(string(mzmltest.Build("x", testSpectra()[:2], false)),
		`accession="MS:1000827"`, `accession="MS:1000000"`, 1)
	f, err = mzml.Read(strings.NewReader(doc))
	require.NoError(t, err)
	_, err = FromMzML(context.Background(), &f, nil, Options{})
	assert.ErrorIs(t, err, mzml.ErrNoIsolationWindow)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.mzML")
	require.NoError(t, os.WriteFile(path, mzmltest.Build("", testSpectra(), false), 0o644))

	r, err := Load(context.Background(), path, nil, testOptions(t))
	require.NoError(t, err)
	assert.Equal(t, "run.mzML", r.ID)
	assert.Equal(t, []string{path}, r.SourceFileNames)
	require.Len(t, r.SourceFileChecksums, 1)
	assert.Len(t, r.SourceFileChecksums[0], 64)

	_, err = Load(context.Background(), filepath.Join(t.TempDir(), "missing.mzML"), nil, Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMaxPeakInMzWindow(t *testing.T) {
	peaks := []mzml.Peak{{Mz: 100, Intens: 1}, {Mz: 200, Intens: 5}, {Mz: 200.01, Intens: 7}, {Mz: 300, Intens: 2}}
	assert.Equal(t, mzml.Peak{Mz: 200.01, Intens: 7}, maxPeakInMzWindow(199.9, 200.1, peaks))
	assert.Equal(t, mzml.Peak{}, maxPeakInMzWindow(400, 500, peaks))
}
