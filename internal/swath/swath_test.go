package swath

import (
	"math"
	"math/rand"
	"testing"

	"github.com/524D/swathqc/internal/run"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var approx = cmp.Comparer(func(x, y float64) bool {
	return math.Abs(x-y) < 1e-9
})

func ms2(target, tic float64, density int, width float64) run.Scan {
	return run.Scan{
		MsLevel:                    2,
		IsolationWindowTargetMz:    target,
		IsolationWindowLowerOffset: width / 2,
		IsolationWindowUpperOffset: width / 2,
		TotalIonCurrent:            tic,
		Density:                    density,
	}
}

// fixtureScans returns two windows with five scans each and three MS1
// scans that must not take part in the grouping
func fixtureScans() []run.Scan {
	widths := []float64{2, 10, 2, 2, 2}
	var scans []run.Scan
	for i, tic := range []float64{1000, 3050, 4000, 6000, 6000} {
		scans = append(scans, ms2(550, tic, []int{2, 4, 4, 5, 5}[i], widths[i]))
	}
	for i, tic := range []float64{1000, 3050, 4000, 20000, 10000} {
		scans = append(scans, ms2(1050, tic, []int{2, 4, 40, 20, 18}[i], widths[i]))
	}
	for i := 0; i < 3; i++ {
		scans = append(scans, run.Scan{MsLevel: 1, TotalIonCurrent: 1e6, Density: 300})
	}
	return scans
}

func TestGroupScansFixture(t *testing.T) {
	m := GroupScans(fixtureScans())

	want := Metrics{
		Groups: []Group{
			{TargetMz: 1050, NumOfSwaths: 5, MzRange: 3.6, TIC: 38050, Density50: 17, DensityIQR: 16,
				TICProportion: 0.65490533562822717},
			{TargetMz: 550, NumOfSwaths: 5, MzRange: 3.6, TIC: 20050, Density50: 4, DensityIQR: 1,
				TICProportion: 0.34509466437177283},
		},
		TotalTIC: 58100,
	}
	if diff := cmp.Diff(want, m, approx); diff != "" {
		t.Errorf("GroupScans mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []float64{1050, 550}, m.Targets())
	assert.Equal(t, 5, m.MaxSwathsPerGroup())
}

func TestGroupScansPermutationInvariant(t *testing.T) {
	scans := fixtureScans()
	want := GroupScans(scans)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		perm := make([]run.Scan, len(scans))
		copy(perm, scans)
		rng.Shuffle(len(perm), func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
		// Exact equality: sums must not depend on input order
		if diff := cmp.Diff(want, GroupScans(perm)); diff != "" {
			t.Fatalf("permutation %d changed the result (-want +got):\n%s", i, diff)
		}
	}
}

func TestGroupScansTotals(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var scans []run.Scan
	for i := 0; i < 200; i++ {
		target := 400 + 25*float64(rng.Intn(12))
		scans = append(scans, ms2(target, rng.Float64()*1e7, rng.Intn(500), 25))
	}
	m := GroupScans(scans)
	require.NotEmpty(t, m.Groups)

	var sum, prop float64
	for i, g := range m.Groups {
		sum += g.TIC
		prop += g.TICProportion
		if i > 0 {
			assert.GreaterOrEqual(t, m.Groups[i-1].TIC, g.TIC)
		}
	}
	assert.Equal(t, m.TotalTIC, sum)
	assert.InDelta(t, 1.0, prop, 1e-12)
}

func TestGroupScansTies(t *testing.T) {
	m := GroupScans([]run.Scan{ms2(700, 10, 1, 2), ms2(500, 10, 1, 2), ms2(600, 10, 1, 2)})
	assert.Equal(t, []float64{500, 600, 700}, m.Targets())
}

func TestGroupScansEmpty(t *testing.T) {
	m := GroupScans(nil)
	assert.Empty(t, m.Groups)
	assert.Equal(t, 0.0, m.TotalTIC)

	m = GroupScans([]run.Scan{ms2(500, 0, 0, 2)})
	require.Len(t, m.Groups, 1)
	assert.Equal(t, 0.0, m.Groups[0].TICProportion)
}
