// Package config loads the seed fitter tuning parameters.
//
// Every field is optional: a nil pointer means "use the default", and the
// Get* accessors apply the defaults. The same schema is accepted as JSON or
// YAML.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/trackfit/internal/fsutil"
	"github.com/banshee-data/trackfit/internal/units"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Defaults applied by the Get* accessors.
const (
	defaultUseHitLimit          = true
	defaultMinClustersPerTrack  = 3
	defaultUseConstField        = false
	defaultConstFieldTesla      = 1.4
	defaultFieldScale           = units.DefaultFieldScale
	defaultMaxSinPhi            = 1.0
	defaultUseFixedClusterError = false
	defaultShortChainHits       = 10
	defaultWorkers              = 1
	defaultVerbosity            = 0
	defaultMomentumUnits        = units.GeV
)

// Fixed global x, y, z cluster errors (cm) used when use_fixed_cluster_error
// is set and no table is given.
var defaultFixedClusterError = []float64{0.2, 0.2, 0.5}

// TuningConfig represents the root configuration for the seed fitter.
type TuningConfig struct {
	// Chain selection
	UseHitLimit         *bool `json:"use_nhits_limit,omitempty" yaml:"use_nhits_limit,omitempty"`
	MinClustersPerTrack *int  `json:"min_clusters_per_track,omitempty" yaml:"min_clusters_per_track,omitempty"`
	ShortChainHits      *int  `json:"short_chain_hits,omitempty" yaml:"short_chain_hits,omitempty"`

	// Field
	UseConstField   *bool    `json:"use_const_field,omitempty" yaml:"use_const_field,omitempty"`
	ConstFieldTesla *float64 `json:"const_field_tesla,omitempty" yaml:"const_field_tesla,omitempty"`
	FieldScale      *float64 `json:"field_scale,omitempty" yaml:"field_scale,omitempty"`

	// Numerical stability
	MaxSinPhi *float64 `json:"max_sin_phi,omitempty" yaml:"max_sin_phi,omitempty"`

	// Cluster errors
	UseFixedClusterError *bool     `json:"use_fixed_cluster_error,omitempty" yaml:"use_fixed_cluster_error,omitempty"`
	FixedClusterError    []float64 `json:"fixed_cluster_error,omitempty" yaml:"fixed_cluster_error,omitempty"`

	// Execution and output
	Workers       *int    `json:"workers,omitempty" yaml:"workers,omitempty"`
	Verbosity     *int    `json:"verbosity,omitempty" yaml:"verbosity,omitempty"`
	MomentumUnits *string `json:"momentum_units,omitempty" yaml:"momentum_units,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		UseHitLimit:          ptrBool(defaultUseHitLimit),
		MinClustersPerTrack:  ptrInt(defaultMinClustersPerTrack),
		ShortChainHits:       ptrInt(defaultShortChainHits),
		UseConstField:        ptrBool(defaultUseConstField),
		ConstFieldTesla:      ptrFloat64(defaultConstFieldTesla),
		FieldScale:           ptrFloat64(defaultFieldScale),
		MaxSinPhi:            ptrFloat64(defaultMaxSinPhi),
		UseFixedClusterError: ptrBool(defaultUseFixedClusterError),
		FixedClusterError:    append([]float64(nil), defaultFixedClusterError...),
		Workers:              ptrInt(defaultWorkers),
		Verbosity:            ptrInt(defaultVerbosity),
		MomentumUnits:        ptrString(defaultMomentumUnits),
	}
}

// LoadTuningConfig loads a TuningConfig from a .json, .yaml or .yml file.
// Fields omitted from the file retain their default values, so partial
// configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	return LoadTuningConfigFS(fsutil.OSFileSystem{}, path)
}

// LoadTuningConfigFS is LoadTuningConfig reading through fsys.
func LoadTuningConfigFS(fsys fsutil.FileSystem, path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,       // from cmd/
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MinClustersPerTrack != nil && *c.MinClustersPerTrack < 0 {
		return fmt.Errorf("min_clusters_per_track must be non-negative, got %d", *c.MinClustersPerTrack)
	}
	if c.ShortChainHits != nil && *c.ShortChainHits < 0 {
		return fmt.Errorf("short_chain_hits must be non-negative, got %d", *c.ShortChainHits)
	}
	if c.ConstFieldTesla != nil && !isFinite(*c.ConstFieldTesla) {
		return fmt.Errorf("const_field_tesla must be finite, got %f", *c.ConstFieldTesla)
	}
	if c.FieldScale != nil && (!isFinite(*c.FieldScale) || *c.FieldScale == 0) {
		return fmt.Errorf("field_scale must be finite and non-zero, got %g", *c.FieldScale)
	}
	if c.MaxSinPhi != nil {
		if !(*c.MaxSinPhi > 0 && *c.MaxSinPhi <= 1) {
			return fmt.Errorf("max_sin_phi must be in (0, 1], got %f", *c.MaxSinPhi)
		}
	}
	if c.FixedClusterError != nil {
		if len(c.FixedClusterError) != 3 {
			return fmt.Errorf("fixed_cluster_error needs 3 values (x, y, z), got %d", len(c.FixedClusterError))
		}
		for i, v := range c.FixedClusterError {
			if !(v > 0) || !isFinite(v) {
				return fmt.Errorf("fixed_cluster_error[%d] must be positive, got %f", i, v)
			}
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.MomentumUnits != nil && !units.IsValid(*c.MomentumUnits) {
		return fmt.Errorf("momentum_units must be one of %s, got %q", units.GetValidUnitsString(), *c.MomentumUnits)
	}
	return nil
}

// GetUseHitLimit returns the use_nhits_limit value or the default.
func (c *TuningConfig) GetUseHitLimit() bool {
	if c.UseHitLimit == nil {
		return defaultUseHitLimit
	}
	return *c.UseHitLimit
}

// GetMinClustersPerTrack returns the min_clusters_per_track value or the default.
func (c *TuningConfig) GetMinClustersPerTrack() int {
	if c.MinClustersPerTrack == nil {
		return defaultMinClustersPerTrack
	}
	return *c.MinClustersPerTrack
}

// GetShortChainHits returns the short_chain_hits value or the default.
func (c *TuningConfig) GetShortChainHits() int {
	if c.ShortChainHits == nil {
		return defaultShortChainHits
	}
	return *c.ShortChainHits
}

// GetUseConstField returns the use_const_field value or the default.
func (c *TuningConfig) GetUseConstField() bool {
	if c.UseConstField == nil {
		return defaultUseConstField
	}
	return *c.UseConstField
}

// GetConstFieldTesla returns the const_field_tesla value or the default.
func (c *TuningConfig) GetConstFieldTesla() float64 {
	if c.ConstFieldTesla == nil {
		return defaultConstFieldTesla
	}
	return *c.ConstFieldTesla
}

// GetFieldScale returns the field_scale value or the default.
func (c *TuningConfig) GetFieldScale() float64 {
	if c.FieldScale == nil {
		return defaultFieldScale
	}
	return *c.FieldScale
}

// GetMaxSinPhi returns the max_sin_phi value or the default.
func (c *TuningConfig) GetMaxSinPhi() float64 {
	if c.MaxSinPhi == nil {
		return defaultMaxSinPhi
	}
	return *c.MaxSinPhi
}

// GetUseFixedClusterError returns the use_fixed_cluster_error value or the default.
func (c *TuningConfig) GetUseFixedClusterError() bool {
	if c.UseFixedClusterError == nil {
		return defaultUseFixedClusterError
	}
	return *c.UseFixedClusterError
}

// GetFixedClusterError returns the fixed x, y, z errors or the default.
func (c *TuningConfig) GetFixedClusterError() [3]float64 {
	src := c.FixedClusterError
	if len(src) != 3 {
		src = defaultFixedClusterError
	}
	return [3]float64{src[0], src[1], src[2]}
}

// GetWorkers returns the workers value or the default. Zero means
// GOMAXPROCS.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return defaultWorkers
	}
	return *c.Workers
}

// GetVerbosity returns the verbosity value or the default.
func (c *TuningConfig) GetVerbosity() int {
	if c.Verbosity == nil {
		return defaultVerbosity
	}
	return *c.Verbosity
}

// GetMomentumUnits returns the momentum_units value or the default.
func (c *TuningConfig) GetMomentumUnits() string {
	if c.MomentumUnits == nil || *c.MomentumUnits == "" {
		return defaultMomentumUnits
	}
	return *c.MomentumUnits
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
