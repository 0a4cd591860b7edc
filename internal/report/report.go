// Package report assembles the quality control report of a run and
// writes it as JSON or into a SQLite database
package report

import (
	"database/sql/driver"
	"encoding/json"
	"io"
	"math"
	"os"
	"time"

	"github.com/524D/swathqc/internal/metrics"
	"github.com/524D/swathqc/internal/run"
	"github.com/524D/swathqc/internal/swath"

	"github.com/google/uuid"
)

// Float is a metric value that may be infinite or NaN for degenerate
// peaks. Such values are written as null.
type Float float64

// MarshalJSON implements json.Marshaler
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// Value implements driver.Valuer
func (f Float) Value() (driver.Value, error) {
	v := float64(f)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil, nil
	}
	return v, nil
}

// BasePeak is the report entry of one base peak
type BasePeak struct {
	Mz            float64 `json:"mz"`
	RetentionTime float64 `json:"retentionTime"`
	Intensity     float64 `json:"intensity"`
	FWHM          Float   `json:"fwhm"`
	Peaksym       Float   `json:"peaksym"`
	PeakCapacity  Float   `json:"peakCapacity"`
	RTSegment     int     `json:"rtSegment"`
}

// IRTPeptide is the report entry of one iRT peptide
type IRTPeptide struct {
	PeptideID             string  `json:"peptideId"`
	Sequence              string  `json:"sequence"`
	ExpectedRetentionTime float64 `json:"expectedRetentionTime"`
	Candidates            int     `json:"candidates"`
	RetentionTime         Float   `json:"retentionTime"`
	FWHM                  Float   `json:"fwhm"`
	Peaksym               Float   `json:"peaksym"`
	Score                 Float   `json:"score"`
}

// Document is the complete report of one run
type Document struct {
	ID                  string               `json:"id"`
	RunID               string               `json:"runId"`
	Created             time.Time            `json:"created"`
	SourceFileNames     []string             `json:"sourceFileNames"`
	SourceFileChecksums []string             `json:"sourceFileChecksums"`
	Settings            run.AnalysisSettings `json:"settings"`
	StartTime           float64              `json:"startTime"`
	LastScanTime        float64              `json:"lastScanTime"`
	Swath               swath.Metrics        `json:"swath"`
	Undivided           metrics.Undivided    `json:"undivided"`
	Segments            []metrics.Segment    `json:"segments"`
	BasePeaks           []BasePeak           `json:"basePeaks"`
	IRTPeptides         []IRTPeptide         `json:"irtPeptides"`
	UniprotIDs          []string             `json:"uniprotIds"`
}

// New assembles the report of an analyzed run
func New(r *run.Run, res *metrics.Result) Document {
	doc := Document{
		ID:                  uuid.NewString(),
		RunID:               r.ID,
		Created:             time.Now().UTC(),
		SourceFileNames:     r.SourceFileNames,
		SourceFileChecksums: r.SourceFileChecksums,
		Settings:            r.AnalysisSettings,
		StartTime:           r.StartTime,
		LastScanTime:        r.LastScanTime,
		Swath:               res.Swath,
		Undivided:           res.Undivided,
		Segments:            res.Segments,
		BasePeaks:           make([]BasePeak, len(r.BasePeaks)),
		IRTPeptides:         make([]IRTPeptide, len(r.IRTPeaks)),
		UniprotIDs:          r.UniprotIDs,
	}
	for i := range r.BasePeaks {
		bp := &r.BasePeaks[i]
		doc.BasePeaks[i] = BasePeak{
			Mz:            bp.Mz,
			RetentionTime: bp.RetentionTime,
			Intensity:     bp.Intensity,
			FWHM:          Float(bp.FWHM),
			Peaksym:       Float(bp.Peaksym),
			PeakCapacity:  Float(bp.PeakCapacity),
			RTSegment:     bp.RTSegment,
		}
	}
	for i := range r.IRTPeaks {
		p := &r.IRTPeaks[i]
		e := IRTPeptide{
			PeptideID:             p.PeptideID,
			Sequence:              p.Sequence,
			ExpectedRetentionTime: p.ExpectedRetentionTime,
			Candidates:            len(p.PossPeaks),
			RetentionTime:         Float(p.RetentionTime),
			FWHM:                  Float(p.FWHM),
			Peaksym:               Float(p.Peaksym),
		}
		if i < len(res.IRT) {
			e.Score = Float(res.IRT[i].Score)
		}
		doc.IRTPeptides[i] = e
	}
	return doc
}

// WriteJSON writes the report as indented JSON
func WriteJSON(w io.Writer, doc Document) error {
	e := json.NewEncoder(w)
	e.SetIndent(``, `  `) // Make output easier to read for humans
	return e.Encode(doc)
}

// WriteJSONFile writes the report to a JSON file
func WriteJSONFile(path string, doc Document) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
