// Package metrics runs the complete metric computation for one run
package metrics

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/524D/swathqc/internal/chrom"
	"github.com/524D/swathqc/internal/irt"
	"github.com/524D/swathqc/internal/run"
	"github.com/524D/swathqc/internal/segment"
	"github.com/524D/swathqc/internal/swath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Settings controls the metric computation
type Settings struct {
	Division int // number of retention time segments
	Workers  int // parallel base peak workers, 0 means GOMAXPROCS
}

// Result contains all metrics of one run
type Result struct {
	RunID     string             `json:"runId"`
	Swath     swath.Metrics      `json:"swath"`
	Sizes     segment.SwathSizes `json:"swathSizes"`
	Undivided Undivided          `json:"undivided"`
	Segments  []Segment          `json:"segments"`
	IRT       []irt.Candidate    `json:"irt"`
	Skipped   int                `json:"skippedBasePeaks"`
}

// Generator computes the metrics of runs
type Generator struct {
	settings Settings
	log      *zap.Logger
}

// NewGenerator creates a generator. A nil logger disables logging.
func NewGenerator(s Settings, log *zap.Logger) (*Generator, error) {
	if s.Division < 1 {
		return nil, fmt.Errorf("metrics: %w", segment.ErrInvalidDivision)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{settings: s, log: log}, nil
}

// basePeakShapes computes the shape metrics of all base peaks in
// parallel. Base peaks with too few points are skipped and counted.
func (g *Generator) basePeakShapes(ctx context.Context, r *run.Run) (int, error) {
	workers := g.settings.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var skipped atomic.Int64
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := range r.BasePeaks {
		if gctx.Err() != nil {
			break
		}
		i := i
		bp := &r.BasePeaks[i]
		eg.Go(func() error {
			err := chrom.ApplyToBasePeak(bp)
			if errors.Is(err, chrom.ErrInsufficientData) {
				skipped.Add(1)
				return nil
			}
			if err != nil {
				return fmt.Errorf("base peak %d (m/z %.4f): %w", i, bp.Mz, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return int(skipped.Load()), err
	}
	return int(skipped.Load()), ctx.Err()
}

// Generate computes all metrics of r. The base peaks, scans and iRT
// peptides of r are updated in place. MS2 scans must have been frozen.
func (g *Generator) Generate(ctx context.Context, r *run.Run) (*Result, error) {
	log := g.log.With(zap.String("run", r.ID))
	res := &Result{RunID: r.ID}

	skipped, err := g.basePeakShapes(ctx, r)
	if err != nil {
		return nil, err
	}
	res.Skipped = skipped
	log.Debug("base peak shapes computed",
		zap.Int("basePeaks", len(r.BasePeaks)), zap.Int("skipped", skipped))

	seg, err := segment.ForRun(r, g.settings.Division)
	if err != nil {
		return nil, fmt.Errorf("segmenting run: %w", err)
	}
	res.Sizes = seg.Assign(r)

	res.Swath = swath.GroupScans(r.Ms2Scans)
	log.Debug("swath windows grouped", zap.Int("groups", len(res.Swath.Groups)),
		zap.Float64("totalTIC", res.Swath.TotalTIC))

	res.IRT, err = irt.ScoreRun(r)
	if err != nil {
		log.Warn("iRT scoring incomplete", zap.Error(err))
	}

	res.Undivided = undivided(r, seg, res.Sizes)
	res.Segments = divided(r, seg)
	log.Info("metrics generated",
		zap.Int("ms1", res.Undivided.MS1Count),
		zap.Int("ms2", res.Undivided.MS2Count),
		zap.Int("segments", len(res.Segments)),
		zap.Int("irtFound", res.Undivided.IRTPeptidesFound))
	return res, nil
}
