// Package ingest builds a run from an mzML file and an optional
// transition library
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/524D/swathqc/internal/mzml"
	"github.com/524D/swathqc/internal/run"
	"github.com/524D/swathqc/internal/traml"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoSpectra means the mzML file contains no spectra
var ErrNoSpectra = errors.New("ingest: no spectra in mzML file")

// Options controls ingestion
type Options struct {
	RtTolerance   float64 // minutes
	MassTolerance float64 // m/z units
	Workers       int     // parallel spectrum decoders, 0 means GOMAXPROCS
	Log           *zap.Logger
}

// spectrum is a decoded spectrum together with its peaks
type spectrum struct {
	scan  run.Scan
	peaks []mzml.Peak
}

// Load reads an mzML file and builds a run. lib may be nil, in which case
// the run has no iRT peptides.
func Load(ctx context.Context, path string, lib *traml.Library, opts Options) (*run.Run, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	h := sha256.New()
	f, err := mzml.Read(io.TeeReader(fh, h))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	r, err := FromMzML(ctx, &f, lib, opts)
	if err != nil {
		return nil, fmt.Errorf("ingesting %s: %w", path, err)
	}
	if r.ID == "" {
		r.ID = filepath.Base(path)
	}
	r.SourceFileNames = []string{path}
	r.SourceFileChecksums = []string{hex.EncodeToString(h.Sum(nil))}
	return r, nil
}

// FromMzML builds a run from parsed mzML content. Spectra are decoded
// concurrently; MS2 scans are handed to a collector and frozen once all
// decoders are done.
func FromMzML(ctx context.Context, f *mzml.MzML, lib *traml.Library, opts Options) (*run.Run, error) {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	n := f.NumSpecs()
	if n == 0 {
		return nil, ErrNoSpectra
	}

	// Cycles are counted in file order: every MS1 scan starts a new cycle
	cycles := make([]int, n)
	cycle := 0
	for i := 0; i < n; i++ {
		level, err := f.MSLevel(i)
		if err != nil {
			return nil, err
		}
		if level == 1 {
			cycle++
		}
		cycles[i] = cycle
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	specs := make([]spectrum, n)
	ms2 := run.NewMs2Collector(n)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		eg.Go(func() error {
			s, err := decodeSpectrum(f, i)
			if err != nil {
				return fmt.Errorf("spectrum %d: %w", i, err)
			}
			s.scan.Cycle = cycles[i]
			specs[i] = s
			if s.scan.MsLevel == 2 {
				return ms2.Add(s.scan)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := &run.Run{
		ID: f.RunID(),
		AnalysisSettings: run.AnalysisSettings{
			RtTolerance:   opts.RtTolerance,
			MassTolerance: opts.MassTolerance,
		},
		Ms2Scans:     ms2.Freeze(),
		StartTime:    math.Inf(1),
		LastScanTime: math.Inf(-1),
	}
	var ms1Peaks [][]mzml.Peak
	var ms2Peaks [][]mzml.Peak
	for i := range specs {
		s := &specs[i]
		r.StartTime = math.Min(r.StartTime, s.scan.ScanStartTime)
		r.LastScanTime = math.Max(r.LastScanTime, s.scan.ScanStartTime)
		switch s.scan.MsLevel {
		case 1:
			r.Ms1Scans = append(r.Ms1Scans, s.scan)
			ms1Peaks = append(ms1Peaks, s.peaks)
		case 2:
			ms2Peaks = append(ms2Peaks, s.peaks)
		}
	}
	log.Debug("spectra decoded", zap.Int("ms1", len(r.Ms1Scans)), zap.Int("ms2", len(r.Ms2Scans)))

	r.BasePeaks = traceBasePeaks(r.Ms1Scans, ms1Peaks, opts.RtTolerance, opts.MassTolerance)
	log.Debug("base peaks traced", zap.Int("basePeaks", len(r.BasePeaks)))

	if lib != nil {
		r.IRTPeaks = irtCandidates(r, lib, ms2Peaks, opts.RtTolerance, opts.MassTolerance)
		r.UniprotIDs = lib.UniprotIDs
		log.Debug("iRT peptides matched", zap.Int("peptides", len(r.IRTPeaks)))
	}
	return r, nil
}

// decodeSpectrum reads the scan properties and peaks of spectrum i. Peaks
// are sorted by m/z.
func decodeSpectrum(f *mzml.MzML, i int) (spectrum, error) {
	var s spectrum
	var err error
	s.scan.Index = i
	if s.scan.ID, err = f.ScanID(i); err != nil {
		return s, err
	}
	if s.scan.MsLevel, err = f.MSLevel(i); err != nil {
		return s, err
	}
	if s.scan.ScanStartTime, err = f.RetentionTime(i); err != nil {
		return s, err
	}
	if s.peaks, err = f.ReadScan(i); err != nil {
		return s, err
	}
	if !sort.SliceIsSorted(s.peaks, func(a, b int) bool { return s.peaks[a].Mz < s.peaks[b].Mz }) {
		sort.Slice(s.peaks, func(a, b int) bool { return s.peaks[a].Mz < s.peaks[b].Mz })
	}
	s.scan.Density = len(s.peaks)

	tic, err := f.TotalIonCurrent(i)
	if err != nil {
		return s, err
	}
	if math.IsNaN(tic) {
		tic = 0
		for _, p := range s.peaks {
			tic += p.Intens
		}
	}
	s.scan.TotalIonCurrent = tic

	mz, intens, err := f.BasePeak(i)
	if err != nil {
		return s, err
	}
	if math.IsNaN(mz) || math.IsNaN(intens) {
		var bp mzml.Peak
		for _, p := range s.peaks {
			if p.Intens > bp.Intens {
				bp = p
			}
		}
		mz, intens = bp.Mz, bp.Intens
	}
	s.scan.BasePeakMz, s.scan.BasePeakIntensity = mz, intens

	if s.scan.MsLevel == 2 {
		w, err := f.IsolationWindow(i)
		if err != nil {
			return s, err
		}
		s.scan.IsolationWindowTargetMz = w.TargetMz
		s.scan.IsolationWindowLowerOffset = w.LowerOffset
		s.scan.IsolationWindowUpperOffset = w.UpperOffset
	}
	return s, nil
}

// maxPeakInMzWindow returns the most intense peak with m/z in
// [mzMin, mzMax]. peaks must be sorted by m/z.
func maxPeakInMzWindow(mzMin, mzMax float64, peaks []mzml.Peak) mzml.Peak {
	i1 := sort.Search(len(peaks), func(i int) bool { return peaks[i].Mz >= mzMin })
	i2 := sort.Search(len(peaks), func(i int) bool { return peaks[i].Mz > mzMax })

	var peak mzml.Peak // auto initialzed to 0.0, 0.0
	for i := i1; i < i2; i++ {
		if peaks[i].Intens > peak.Intens {
			peak = peaks[i]
		}
	}
	return peak
}
