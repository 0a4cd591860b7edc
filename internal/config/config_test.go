package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"SWATHQC_DIVISION", "SWATHQC_RT_TOLERANCE", "SWATHQC_MASS_TOLERANCE",
	"SWATHQC_WORKERS", "SWATHQC_IRT_LIBRARY", "SWATHQC_LOGGING_LEVEL",
	"SWATHQC_LOGGING_DEVELOPMENT", "SWATHQC_LOGGING_FILE_PATH",
	"SWATHQC_REPORT_JSON_PATH", "SWATHQC_REPORT_SQLITE_PATH",
}

// clearEnv unsets all variables for the duration of the test
func clearEnv(t *testing.T) {
	for _, v := range envVars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "swathqc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     error
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "file overrides defaults",
			file: "division: 8\nrt_tolerance: 1.5\nlogging:\n  level: debug\nreport:\n  json_path: out.json\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8, cfg.Division)
				assert.Equal(t, 1.5, cfg.RtTolerance)
				assert.Equal(t, 0.05, cfg.MassTolerance)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "out.json", cfg.Report.JSONPath)
			},
		},
		{
			name: "environment overrides file",
			env: map[string]string{
				"SWATHQC_DIVISION":           "2",
				"SWATHQC_REPORT_SQLITE_PATH": "qc.db",
				"SWATHQC_LOGGING_DEVELOPMENT": "true",
			},
			file: "division: 8\nmass_tolerance: 0.1\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2, cfg.Division)
				assert.Equal(t, 0.1, cfg.MassTolerance)
				assert.Equal(t, "qc.db", cfg.Report.SQLitePath)
				assert.True(t, cfg.Logging.Development)
			},
		},
		{
			name:    "invalid division",
			env:     map[string]string{"SWATHQC_DIVISION": "0"},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "negative tolerance",
			file:    "mass_tolerance: -1\n",
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "unknown log level",
			file:    "logging:\n  level: loud\n",
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}

			cfg, err := Load(path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "divison: 3\n"))
	assert.Error(t, err, "unknown keys are rejected")

	t.Setenv("SWATHQC_WORKERS", "many")
	_, err = Load("")
	assert.Error(t, err)
}
