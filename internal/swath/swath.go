// Package swath groups MS2 scans by isolation window and computes
// per-window statistics
package swath

import (
	"math"
	"sort"

	"github.com/524D/swathqc/internal/run"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Group holds the statistics of all MS2 scans sharing one isolation
// window target
type Group struct {
	TargetMz      float64 `json:"targetMz"`
	NumOfSwaths   int     `json:"numOfSwaths"`
	MzRange       float64 `json:"mzRange"` // mean isolation window width
	TIC           float64 `json:"tic"`
	Density50     float64 `json:"density50"`
	DensityIQR    float64 `json:"densityIQR"`
	TICProportion float64 `json:"ticProportion"`
}

// Metrics is the result of grouping. Groups are ordered by TIC,
// highest first; groups with equal TIC are ordered by target m/z.
type Metrics struct {
	Groups   []Group `json:"groups"`
	TotalTIC float64 `json:"totalTIC"`
}

type members struct {
	tics      []float64
	densities []float64
	widths    []float64
}

// sortedSum adds values in ascending order, so that the result does not
// depend on the order in which the values were collected
func sortedSum(v []float64) float64 {
	sort.Float64s(v)
	return floats.Sum(v)
}

// iqr returns the empirical inter-quartile range of sorted values
func iqr(sorted []float64) float64 {
	return stat.Quantile(0.75, stat.Empirical, sorted, nil) -
		stat.Quantile(0.25, stat.Empirical, sorted, nil)
}

// GroupScans groups the MS2 scans of scans by isolation window target m/z.
// Scans of other MS levels are ignored. The result is independent of the
// order of scans.
func GroupScans(scans []run.Scan) Metrics {
	byTarget := make(map[float64]*members)
	for i := range scans {
		s := &scans[i]
		if s.MsLevel != 2 {
			continue
		}
		m, ok := byTarget[s.IsolationWindowTargetMz]
		if !ok {
			m = &members{}
			byTarget[s.IsolationWindowTargetMz] = m
		}
		m.tics = append(m.tics, s.TotalIonCurrent)
		m.densities = append(m.densities, float64(s.Density))
		m.widths = append(m.widths, s.WindowWidth())
	}

	var res Metrics
	res.Groups = make([]Group, 0, len(byTarget))
	for target, m := range byTarget {
		sort.Float64s(m.densities)
		sort.Float64s(m.widths)
		res.Groups = append(res.Groups, Group{
			TargetMz:    target,
			NumOfSwaths: len(m.tics),
			MzRange:     stat.Mean(m.widths, nil),
			TIC:         sortedSum(m.tics),
			Density50:   math.Round(stat.Mean(m.densities, nil)),
			DensityIQR:  iqr(m.densities),
		})
	}
	sort.Slice(res.Groups, func(i, j int) bool {
		gi, gj := res.Groups[i], res.Groups[j]
		if gi.TIC != gj.TIC {
			return gi.TIC > gj.TIC
		}
		return gi.TargetMz < gj.TargetMz
	})

	for _, g := range res.Groups {
		res.TotalTIC += g.TIC
	}
	if res.TotalTIC != 0 {
		for i := range res.Groups {
			res.Groups[i].TICProportion = res.Groups[i].TIC / res.TotalTIC
		}
	}
	return res
}

// Targets returns the target m/z of all groups in result order
func (m Metrics) Targets() []float64 {
	t := make([]float64, len(m.Groups))
	for i, g := range m.Groups {
		t[i] = g.TargetMz
	}
	return t
}

// MaxSwathsPerGroup returns the largest number of scans in a group
func (m Metrics) MaxSwathsPerGroup() int {
	n := 0
	for _, g := range m.Groups {
		n = max(n, g.NumOfSwaths)
	}
	return n
}
