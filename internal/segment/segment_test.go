package segment

import (
	"testing"

	"github.com/524D/swathqc/internal/run"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoundaries(t *testing.T) {
	s, err := New(10, 50, 4)
	require.NoError(t, err)
	assert.Equal(t, 10.0, s.Width)
	if diff := cmp.Diff([]float64{10, 20, 30, 40}, s.Boundaries); diff != "" {
		t.Errorf("boundaries mismatch (-want +got):\n%s", diff)
	}

	_, err = New(0, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidDivision)
}

func TestSegment(t *testing.T) {
	s, err := New(10, 50, 4)
	require.NoError(t, err)

	tests := []struct {
		rt   float64
		want int
	}{
		{5, 0},
		{10, 0}, // at the run's minimum retention time
		{15, 1},
		{20, 1},
		{20.5, 2},
		{39.9, 3},
		{40, 3},
		// Past the last boundary: one more than the last configured
		// segment. This off-by-one is part of the reported numbering.
		{45, 4},
		{50, 4},
		{1000, 4},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, s.Segment(tc.rt), "rt %f", tc.rt)
	}
}

func TestSegmentSingleDivision(t *testing.T) {
	s, err := New(0, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Segment(0))
	assert.Equal(t, 1, s.Segment(0.1))
	assert.Equal(t, 1, s.Segment(10))
}

func TestForRunAndAssign(t *testing.T) {
	r := &run.Run{
		BasePeaks: []run.BasePeak{
			{RetentionTime: 0},
			{RetentionTime: 25},
			{RetentionTime: 100},
		},
		Ms1Scans: []run.Scan{
			{ScanStartTime: 0},
			{ScanStartTime: 30},
			{ScanStartTime: 99},
		},
		Ms2Scans: []run.Scan{
			{ScanStartTime: 1, IsolationWindowLowerOffset: 1, IsolationWindowUpperOffset: 1},
			{ScanStartTime: 50, IsolationWindowLowerOffset: 5, IsolationWindowUpperOffset: 5},
			{ScanStartTime: 76, IsolationWindowLowerOffset: 2, IsolationWindowUpperOffset: 2},
		},
	}
	s, err := ForRun(r, 4)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s.MinTime)
	assert.Equal(t, 100.0, s.MaxTime)

	sizes := s.Assign(r)
	assert.Equal(t, 2.0, sizes.Smallest)
	assert.Equal(t, 10.0, sizes.Largest)
	assert.Equal(t, 8.0, sizes.Difference())

	assert.Equal(t, []int{0, 1, 4}, []int{r.BasePeaks[0].RTSegment, r.BasePeaks[1].RTSegment, r.BasePeaks[2].RTSegment})
	assert.Equal(t, []int{0, 2, 4}, []int{r.Ms1Scans[0].RTSegment, r.Ms1Scans[1].RTSegment, r.Ms1Scans[2].RTSegment})
	// Every MS2 scan gets a segment, including the one with the widest window
	assert.Equal(t, []int{1, 2, 4}, []int{r.Ms2Scans[0].RTSegment, r.Ms2Scans[1].RTSegment, r.Ms2Scans[2].RTSegment})
}

func TestForRunWithoutBasePeaks(t *testing.T) {
	r := &run.Run{
		Ms1Scans: []run.Scan{{ScanStartTime: 5}},
		Ms2Scans: []run.Scan{{ScanStartTime: 2}, {ScanStartTime: 12}},
	}
	s, err := ForRun(r, 2)
	require.NoError(t, err)
	assert.Equal(t, 2.0, s.MinTime)
	assert.Equal(t, 12.0, s.MaxTime)

	_, err = ForRun(&run.Run{}, 2)
	assert.ErrorIs(t, err, ErrEmptyRun)
}
