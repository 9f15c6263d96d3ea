// Package config provides configuration loading and management for radiomics3d.
// It handles loading configuration from YAML or TOML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"radiomics3d/internal/models"
	"radiomics3d/pkg/logging"
)

// Config represents the application configuration loaded from YAML or TOML
type Config struct {
	// Region of interest selection
	ROI struct {
		// Label is the mask label that marks the region of interest
		Label int `yaml:"label" toml:"label"`
	} `yaml:"roi" toml:"roi"`

	// Resampling parameters
	Resampling struct {
		// Spacing is the target voxel spacing in mm as x, y, z. Empty keeps
		// the native grid.
		Spacing []float64 `yaml:"spacing" toml:"spacing"`

		// Interpolation is the kernel for the intensity volume
		Interpolation string `yaml:"interpolation" toml:"interpolation"`

		// MaskInterpolation is the kernel for the ROI mask
		MaskInterpolation string `yaml:"maskInterpolation" toml:"maskInterpolation"`

		// Threshold re-binarizes the interpolated mask
		Threshold float64 `yaml:"threshold" toml:"threshold"`
	} `yaml:"resampling" toml:"resampling"`

	// Discretization parameters
	Discretization struct {
		// Policy is "fbn" (fixed bin number) or "fbs" (fixed bin size)
		Policy string `yaml:"policy" toml:"policy"`

		BinCount int     `yaml:"binCount" toml:"binCount"`
		BinWidth float64 `yaml:"binWidth" toml:"binWidth"`

		// Minimum pins the lower bound of the first bin for fixed bin size
		Minimum *float64 `yaml:"minimum,omitempty" toml:"minimum,omitempty"`
	} `yaml:"discretization" toml:"discretization"`

	// Texture matrix parameters
	Texture struct {
		// Force2D computes every family slice by slice
		Force2D bool `yaml:"force2D" toml:"force2D"`

		// Families lists the enabled feature families
		Families []string `yaml:"families" toml:"families"`

		GLCM struct {
			Distance    int    `yaml:"distance" toml:"distance"`
			Weighting   string `yaml:"weighting" toml:"weighting"`
			Aggregation string `yaml:"aggregation" toml:"aggregation"`
		} `yaml:"glcm" toml:"glcm"`

		// GLDZM reference map discretization, independent of the volume's
		GLDZM struct {
			ReferencePolicy   string  `yaml:"referencePolicy" toml:"referencePolicy"`
			ReferenceBinCount int     `yaml:"referenceBinCount" toml:"referenceBinCount"`
			ReferenceBinWidth float64 `yaml:"referenceBinWidth" toml:"referenceBinWidth"`
		} `yaml:"gldzm" toml:"gldzm"`

		NGTDM struct {
			Radius int `yaml:"radius" toml:"radius"`
		} `yaml:"ngtdm" toml:"ngtdm"`
	} `yaml:"texture" toml:"texture"`

	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel processing
		NumCores int `yaml:"numCores" toml:"numCores"`
	} `yaml:"processing" toml:"processing"`

	// Output parameters
	Output struct {
		// SaveIntermediaryResults determines whether to save intermediary processing results
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults" toml:"saveIntermediaryResults"`

		// IntermediaryDir is the directory for intermediary images
		IntermediaryDir string `yaml:"intermediaryDir" toml:"intermediaryDir"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose" toml:"verbose"`
	} `yaml:"output" toml:"output"`

	// Log parameters
	Log struct {
		// Level is one of debug, info, warning, error or silent
		Level string `yaml:"level" toml:"level"`

		// Logfile is an optional rotating log file; empty logs to stdout
		Logfile    string `yaml:"logfile" toml:"logfile"`
		MaxLogSize int    `yaml:"maxLogSize" toml:"maxLogSize"`
		MaxLogAge  int    `yaml:"maxLogAge" toml:"maxLogAge"`
	} `yaml:"log" toml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.ROI.Label = 1

	// No resampling by default
	cfg.Resampling.Interpolation = "trilinear"
	cfg.Resampling.MaskInterpolation = "trilinear"
	cfg.Resampling.Threshold = 0.5

	cfg.Discretization.Policy = "fbn"
	cfg.Discretization.BinCount = 32
	cfg.Discretization.BinWidth = 25

	cfg.Texture.Families = []string{"glcm", "glszm", "gldzm", "ngtdm"}
	cfg.Texture.GLCM.Distance = 1
	cfg.Texture.GLCM.Weighting = "none"
	cfg.Texture.GLCM.Aggregation = "average"
	cfg.Texture.GLDZM.ReferencePolicy = "fbn"
	cfg.Texture.GLDZM.ReferenceBinCount = 32
	cfg.Texture.GLDZM.ReferenceBinWidth = 1
	cfg.Texture.NGTDM.Radius = 1

	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default

	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.IntermediaryDir = "intermediary"
	cfg.Output.Verbose = true

	cfg.Log.Level = "info"
	cfg.Log.MaxLogSize = 100
	cfg.Log.MaxLogAge = 30

	return cfg
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfig loads configuration from a YAML or TOML file, chosen by extension.
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	if isTOML(configPath) {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML or TOML file, chosen by extension
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	if isTOML(configPath) {
		f, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("error writing config file: %w", err)
		}
		defer f.Close()
		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		return nil
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks the numeric ranges of the configuration. Names of kernels,
// policies and families are checked when the extraction parameters are built.
func (c *Config) Validate() error {
	if c.ROI.Label < 1 {
		return fmt.Errorf("%w: roi label must be positive, got %d", models.ErrInvalidInput, c.ROI.Label)
	}

	if n := len(c.Resampling.Spacing); n != 0 && n != 3 {
		return fmt.Errorf("%w: resampling spacing needs 3 values, got %d", models.ErrInvalidInput, n)
	}
	for _, s := range c.Resampling.Spacing {
		if s <= 0 {
			return fmt.Errorf("%w: resampling spacing must be positive, got %v", models.ErrInvalidInput, c.Resampling.Spacing)
		}
	}
	if t := c.Resampling.Threshold; t <= 0 || t > 1 {
		return fmt.Errorf("%w: mask threshold must be in (0, 1], got %g", models.ErrInvalidInput, t)
	}

	if c.Texture.GLCM.Distance < 1 {
		return fmt.Errorf("%w: GLCM distance must be at least 1, got %d", models.ErrInvalidInput, c.Texture.GLCM.Distance)
	}
	if c.Texture.NGTDM.Radius < 1 {
		return fmt.Errorf("%w: NGTDM radius must be at least 1, got %d", models.ErrInvalidInput, c.Texture.NGTDM.Radius)
	}
	if len(c.Texture.Families) == 0 {
		return fmt.Errorf("%w: no feature family enabled", models.ErrInvalidInput)
	}

	if c.Processing.NumCores < 0 {
		return fmt.Errorf("%w: numCores must not be negative", models.ErrInvalidInput)
	}
	if c.Output.SaveIntermediaryResults && c.Output.IntermediaryDir == "" {
		return fmt.Errorf("%w: intermediaryDir is required when saving intermediary results", models.ErrInvalidInput)
	}
	return nil
}

// LogFile returns the rotating log file settings
func (c *Config) LogFile() logging.FileConfig {
	return logging.FileConfig{
		Logfile: c.Log.Logfile,
		MaxSize: c.Log.MaxLogSize,
		MaxAge:  c.Log.MaxLogAge,
	}
}

// LogLevel returns the configured level. Without verbose output only warnings
// and errors are written.
func (c *Config) LogLevel() (logging.Level, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return level, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if !c.Output.Verbose && level < logging.WarningLevel {
		level = logging.WarningLevel
	}
	return level, nil
}
