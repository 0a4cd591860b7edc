package report

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store writes reports into a SQLite database. Several runs can be
// stored in the same database; every table references the report id.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates a report database
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// createTables creates the required database schema
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS run (
		ReportId TEXT PRIMARY KEY,
		RunId TEXT,
		Created TEXT,
		SourceFiles TEXT,
		Checksums TEXT,
		RtTolerance DOUBLE,
		MassTolerance DOUBLE,
		StartTime DOUBLE,
		LastScanTime DOUBLE,
		TotalTIC DOUBLE,
		RTDuration DOUBLE,
		SwathSizeDifference DOUBLE,
		MS1Count INTEGER,
		MS2Count INTEGER,
		NumOfSwathPerCycle INTEGER,
		CycleTime50 DOUBLE,
		CycleTimeIQR DOUBLE,
		MS2Density50 DOUBLE,
		MS2DensityIQR DOUBLE,
		MeanFWHM DOUBLE,
		MeanPeaksym DOUBLE,
		MeanPeakCapacity DOUBLE,
		IRTPeptidesFound INTEGER
	);

	CREATE TABLE IF NOT EXISTS swath_group (
		ReportId TEXT REFERENCES run(ReportId),
		Position INTEGER,
		TargetMz DOUBLE,
		NumOfSwaths INTEGER,
		MzRange DOUBLE,
		TIC DOUBLE,
		Density50 DOUBLE,
		DensityIQR DOUBLE,
		TICProportion DOUBLE
	);

	CREATE TABLE IF NOT EXISTS rt_segment (
		ReportId TEXT REFERENCES run(ReportId),
		Segment INTEGER,
		StartTime DOUBLE,
		MS1Count INTEGER,
		MS2Count INTEGER,
		BasePeakCount INTEGER,
		TICChange50 DOUBLE,
		TICChangeIQR DOUBLE,
		MeanFWHM DOUBLE,
		MeanPeaksym DOUBLE,
		MeanPeakCapacity DOUBLE
	);

	CREATE TABLE IF NOT EXISTS base_peak (
		ReportId TEXT REFERENCES run(ReportId),
		Mz DOUBLE,
		RetentionTime DOUBLE,
		Intensity DOUBLE,
		FWHM DOUBLE,
		Peaksym DOUBLE,
		PeakCapacity DOUBLE,
		RTSegment INTEGER
	);

	CREATE TABLE IF NOT EXISTS irt_peak (
		ReportId TEXT REFERENCES run(ReportId),
		PeptideId TEXT,
		Sequence TEXT,
		ExpectedRetentionTime DOUBLE,
		Candidates INTEGER,
		RetentionTime DOUBLE,
		FWHM DOUBLE,
		Peaksym DOUBLE,
		Score DOUBLE
	);

	CREATE TABLE IF NOT EXISTS uniprot_id (
		ReportId TEXT REFERENCES run(ReportId),
		UniprotId TEXT
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Save writes a report in a single transaction
func (s *Store) Save(doc Document) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	u := doc.Undivided
	_, err = tx.Exec(`
		INSERT INTO run (
			ReportId, RunId, Created, SourceFiles, Checksums, RtTolerance,
			MassTolerance, StartTime, LastScanTime, TotalTIC, RTDuration,
			SwathSizeDifference, MS1Count, MS2Count, NumOfSwathPerCycle,
			CycleTime50, CycleTimeIQR, MS2Density50, MS2DensityIQR, MeanFWHM,
			MeanPeaksym, MeanPeakCapacity, IRTPeptidesFound
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		doc.ID,
		doc.RunID,
		doc.Created.Format(time.RFC3339),
		strings.Join(doc.SourceFileNames, ";"),
		strings.Join(doc.SourceFileChecksums, ";"),
		doc.Settings.RtTolerance,
		doc.Settings.MassTolerance,
		doc.StartTime,
		doc.LastScanTime,
		doc.Swath.TotalTIC,
		u.RTDuration,
		u.SwathSizeDifference,
		u.MS1Count,
		u.MS2Count,
		u.NumOfSwathPerCycle,
		u.CycleTime50,
		u.CycleTimeIQR,
		u.MS2Density50,
		u.MS2DensityIQR,
		u.MeanFWHM,
		u.MeanPeaksym,
		u.MeanPeakCapacity,
		u.IRTPeptidesFound,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO swath_group (
			ReportId, Position, TargetMz, NumOfSwaths, MzRange, TIC,
			Density50, DensityIQR, TICProportion
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare swath statement: %w", err)
	}
	defer stmt.Close()
	for i, g := range doc.Swath.Groups {
		_, err = stmt.Exec(doc.ID, i, g.TargetMz, g.NumOfSwaths, g.MzRange, g.TIC,
			g.Density50, g.DensityIQR, g.TICProportion)
		if err != nil {
			return fmt.Errorf("failed to insert swath group: %w", err)
		}
	}

	segStmt, err := tx.Prepare(`
		INSERT INTO rt_segment (
			ReportId, Segment, StartTime, MS1Count, MS2Count, BasePeakCount,
			TICChange50, TICChangeIQR, MeanFWHM, MeanPeaksym, MeanPeakCapacity
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare segment statement: %w", err)
	}
	defer segStmt.Close()
	for _, sg := range doc.Segments {
		_, err = segStmt.Exec(doc.ID, sg.Segment, sg.StartTime, sg.MS1Count, sg.MS2Count,
			sg.BasePeakCount, sg.TICChange50, sg.TICChangeIQR, sg.MeanFWHM, sg.MeanPeaksym,
			sg.MeanPeakCapacity)
		if err != nil {
			return fmt.Errorf("failed to insert segment: %w", err)
		}
	}

	bpStmt, err := tx.Prepare(`
		INSERT INTO base_peak (
			ReportId, Mz, RetentionTime, Intensity, FWHM, Peaksym, PeakCapacity, RTSegment
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare base peak statement: %w", err)
	}
	defer bpStmt.Close()
	for _, bp := range doc.BasePeaks {
		_, err = bpStmt.Exec(doc.ID, bp.Mz, bp.RetentionTime, bp.Intensity, bp.FWHM,
			bp.Peaksym, bp.PeakCapacity, bp.RTSegment)
		if err != nil {
			return fmt.Errorf("failed to insert base peak: %w", err)
		}
	}

	irtStmt, err := tx.Prepare(`
		INSERT INTO irt_peak (
			ReportId, PeptideId, Sequence, ExpectedRetentionTime, Candidates,
			RetentionTime, FWHM, Peaksym, Score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare iRT statement: %w", err)
	}
	defer irtStmt.Close()
	for _, p := range doc.IRTPeptides {
		_, err = irtStmt.Exec(doc.ID, p.PeptideID, p.Sequence, p.ExpectedRetentionTime,
			p.Candidates, p.RetentionTime, p.FWHM, p.Peaksym, p.Score)
		if err != nil {
			return fmt.Errorf("failed to insert iRT peptide: %w", err)
		}
	}

	idStmt, err := tx.Prepare(`INSERT INTO uniprot_id (ReportId, UniprotId) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare UniProt statement: %w", err)
	}
	defer idStmt.Close()
	for _, id := range doc.UniprotIDs {
		if _, err = idStmt.Exec(doc.ID, id); err != nil {
			return fmt.Errorf("failed to insert UniProt id: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
