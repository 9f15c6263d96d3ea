package config

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"radiomics3d/internal/models"
	"radiomics3d/pkg/logging"
)

// TestDefaultConfig verifies that the defaults pass validation
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
	if cfg.ROI.Label != 1 {
		t.Errorf("Expected default ROI label 1, got %d", cfg.ROI.Label)
	}
	if len(cfg.Texture.Families) != 4 {
		t.Errorf("Expected all 4 families enabled, got %v", cfg.Texture.Families)
	}
	if len(cfg.Resampling.Spacing) != 0 {
		t.Errorf("Expected no resampling by default, got %v", cfg.Resampling.Spacing)
	}
	if cfg.Texture.GLDZM.ReferencePolicy != "fbn" || cfg.Texture.GLDZM.ReferenceBinCount != 32 {
		t.Errorf("Expected the reference map to default to 32 fixed bins, got %+v", cfg.Texture.GLDZM)
	}
}

// TestLoadMissingFile checks that a missing file yields the defaults
func TestLoadMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("Expected default config for a missing file")
	}
}

func customConfig() *Config {
	cfg := DefaultConfig()
	minimum := -1000.0
	cfg.ROI.Label = 2
	cfg.Resampling.Spacing = []float64{1, 1, 2}
	cfg.Resampling.Interpolation = "tricubic-spline"
	cfg.Resampling.Threshold = 0.4
	cfg.Discretization.Policy = "fbs"
	cfg.Discretization.BinWidth = 10
	cfg.Discretization.Minimum = &minimum
	cfg.Texture.Force2D = true
	cfg.Texture.Families = []string{"glcm", "ngtdm"}
	cfg.Texture.GLCM.Distance = 2
	cfg.Texture.GLCM.Weighting = "euclidean"
	cfg.Texture.GLCM.Aggregation = "merged"
	cfg.Texture.NGTDM.Radius = 2
	cfg.Processing.NumCores = 3
	cfg.Log.Logfile = "radiomics.log"
	return cfg
}

// TestRoundTrip saves and reloads a customized config in both formats
func TestRoundTrip(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			want := customConfig()
			if err := SaveConfig(want, path); err != nil {
				t.Fatalf("SaveConfig failed: %v", err)
			}
			got, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", got, want)
			}
		})
	}
}

// TestCreateDefaultConfigFile checks the default file can be read back
func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default file should validate: %v", err)
	}
}

// TestValidate checks that out-of-range settings are rejected
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero label", func(c *Config) { c.ROI.Label = 0 }},
		{"two spacing values", func(c *Config) { c.Resampling.Spacing = []float64{1, 1} }},
		{"negative spacing", func(c *Config) { c.Resampling.Spacing = []float64{1, -1, 1} }},
		{"zero threshold", func(c *Config) { c.Resampling.Threshold = 0 }},
		{"threshold above one", func(c *Config) { c.Resampling.Threshold = 1.5 }},
		{"zero distance", func(c *Config) { c.Texture.GLCM.Distance = 0 }},
		{"zero radius", func(c *Config) { c.Texture.NGTDM.Radius = 0 }},
		{"no families", func(c *Config) { c.Texture.Families = nil }},
		{"negative cores", func(c *Config) { c.Processing.NumCores = -1 }},
		{"missing dump dir", func(c *Config) {
			c.Output.SaveIntermediaryResults = true
			c.Output.IntermediaryDir = ""
		}},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.modify(cfg)
		err := cfg.Validate()
		if !errors.Is(err, models.ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tt.name, err)
		}
	}
}

// TestLogSettings checks the level and file helpers
func TestLogSettings(t *testing.T) {
	cfg := DefaultConfig()
	level, err := cfg.LogLevel()
	if err != nil || level != logging.InfoLevel {
		t.Errorf("Expected info level, got %v (%v)", level, err)
	}

	cfg.Output.Verbose = false
	if level, _ = cfg.LogLevel(); level != logging.WarningLevel {
		t.Errorf("Expected warning level without verbose output, got %v", level)
	}

	cfg.Log.Level = "loud"
	if _, err := cfg.LogLevel(); !errors.Is(err, models.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for an unknown level, got %v", err)
	}

	cfg.Log.Logfile = "out.log"
	f := cfg.LogFile()
	if f.Logfile != "out.log" || f.MaxSize != 100 || f.MaxAge != 30 {
		t.Errorf("Unexpected log file settings: %+v", f)
	}
}
