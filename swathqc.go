// Copyright 2018 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/524D/swathqc/internal/config"
	"github.com/524D/swathqc/internal/ingest"
	"github.com/524D/swathqc/internal/logging"
	"github.com/524D/swathqc/internal/metrics"
	"github.com/524D/swathqc/internal/report"
	"github.com/524D/swathqc/internal/traml"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const progName = "swathqc"

var progVersion = `Unknown`

// analyzeFlags holds command line values that override the configuration
type analyzeFlags struct {
	configFile    string
	division      int
	rtTolerance   float64
	massTolerance float64
	workers       int
	irtLibrary    string
	jsonOut       string
	sqliteOut     string
	logLevel      string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   progName,
		Short: "Quality control metrics for SWATH/DIA mass spectrometry runs",
		Long: `swathqc computes quality control metrics of a SWATH/DIA run from its mzML
file: swath window statistics, chromatographic peak shapes of base peaks,
per retention time segment metrics and, given a TraML library, the
retention time and quality of iRT peptides.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAnalyzeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", progName, progVersion)
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	var fl analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze <file.mzML>",
		Short: "Compute the quality control report of an mzML file",
		Long: `Compute the quality control report of an mzML file. Settings are read from
the optional configuration file and SWATHQC_* environment variables; flags
take precedence over both. Without --json or --sqlite the report is
written as JSON to standard output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(fl.configFile)
			if err != nil {
				return err
			}
			fl.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			defer log.Sync()

			return analyze(cmd.Context(), cfg, args[0], cmd.OutOrStdout(), log)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&fl.configFile, "config", "c", "", "YAML configuration file")
	f.IntVarP(&fl.division, "division", "d", 0, "number of retention time segments")
	f.Float64Var(&fl.rtTolerance, "rt", 0, "retention time tolerance (minutes) of base peak traces")
	f.Float64Var(&fl.massTolerance, "mz", 0, "m/z tolerance of base peak and transition traces")
	f.IntVarP(&fl.workers, "workers", "w", 0, "number of concurrent workers (0 = number of CPUs)")
	f.StringVar(&fl.irtLibrary, "irt", "", "TraML library with iRT peptides")
	f.StringVarP(&fl.jsonOut, "json", "o", "", "write the JSON report to this file")
	f.StringVar(&fl.sqliteOut, "sqlite", "", "append the report to this SQLite database")
	f.StringVar(&fl.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

// apply copies the flags that were given on the command line into cfg
func (fl *analyzeFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("division") {
		cfg.Division = fl.division
	}
	if f.Changed("rt") {
		cfg.RtTolerance = fl.rtTolerance
	}
	if f.Changed("mz") {
		cfg.MassTolerance = fl.massTolerance
	}
	if f.Changed("workers") {
		cfg.Workers = fl.workers
	}
	if f.Changed("irt") {
		cfg.IRTLibrary = fl.irtLibrary
	}
	if f.Changed("json") {
		cfg.Report.JSONPath = fl.jsonOut
	}
	if f.Changed("sqlite") {
		cfg.Report.SQLitePath = fl.sqliteOut
	}
	if f.Changed("log-level") {
		cfg.Logging.Level = fl.logLevel
	}
}

// readLibrary reads the TraML library at path
func readLibrary(path string) (*traml.Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lib, err := traml.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return &lib, nil
}

// analyze runs the complete analysis of one mzML file and writes the
// configured reports
func analyze(ctx context.Context, cfg *config.Config, mzMLPath string, stdout io.Writer, log *zap.Logger) error {
	var lib *traml.Library
	if cfg.IRTLibrary != "" {
		var err error
		if lib, err = readLibrary(cfg.IRTLibrary); err != nil {
			return err
		}
		log.Info("iRT library loaded", zap.String("file", cfg.IRTLibrary),
			zap.Int("peptides", len(lib.IRTPeptides())))
	}

	r, err := ingest.Load(ctx, mzMLPath, lib, ingest.Options{
		RtTolerance:   cfg.RtTolerance,
		MassTolerance: cfg.MassTolerance,
		Workers:       cfg.Workers,
		Log:           log,
	})
	if err != nil {
		return err
	}

	gen, err := metrics.NewGenerator(metrics.Settings{Division: cfg.Division, Workers: cfg.Workers}, log)
	if err != nil {
		return err
	}
	res, err := gen.Generate(ctx, r)
	if err != nil {
		return fmt.Errorf("generating metrics for %s: %w", mzMLPath, err)
	}
	if res.Skipped > 0 {
		log.Warn("base peaks without peak shape", zap.Int("skipped", res.Skipped))
	}

	doc := report.New(r, res)
	if cfg.Report.JSONPath == "" && cfg.Report.SQLitePath == "" {
		return report.WriteJSON(stdout, doc)
	}
	if cfg.Report.JSONPath != "" {
		if err := report.WriteJSONFile(cfg.Report.JSONPath, doc); err != nil {
			return fmt.Errorf("writing JSON report: %w", err)
		}
		log.Info("JSON report written", zap.String("file", cfg.Report.JSONPath))
	}
	if cfg.Report.SQLitePath != "" {
		store, err := report.OpenStore(cfg.Report.SQLitePath)
		if err != nil {
			return err
		}
		if err := store.Save(doc); err != nil {
			store.Close()
			return err
		}
		if err := store.Close(); err != nil {
			return err
		}
		log.Info("report stored", zap.String("database", cfg.Report.SQLitePath),
			zap.String("reportId", doc.ID))
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
