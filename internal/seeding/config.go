package seeding

import (
	"github.com/banshee-data/trackfit/internal/config"
)

// FitterConfig holds the numerical and selection settings of a Fitter.
type FitterConfig struct {
	UseHitLimit          bool
	MinClustersPerTrack  int
	ShortChainHits       int     // below this many hits pt comes from the circle fit
	UseConstField        bool
	ConstFieldTesla      float64
	FieldScale           float64 // signed; converts tesla into the propagator's units
	MaxSinPhi            float64
	UseFixedClusterError bool
	FixedClusterError    [3]float64
	Workers              int // 0 means GOMAXPROCS
}

// DefaultFitterConfig returns the built-in tuning defaults.
func DefaultFitterConfig() FitterConfig {
	return FitterConfigFromTuning(config.DefaultTuningConfig())
}

// FitterConfigFromTuning builds a FitterConfig from a loaded TuningConfig.
func FitterConfigFromTuning(cfg *config.TuningConfig) FitterConfig {
	return FitterConfig{
		UseHitLimit:          cfg.GetUseHitLimit(),
		MinClustersPerTrack:  cfg.GetMinClustersPerTrack(),
		ShortChainHits:       cfg.GetShortChainHits(),
		UseConstField:        cfg.GetUseConstField(),
		ConstFieldTesla:      cfg.GetConstFieldTesla(),
		FieldScale:           cfg.GetFieldScale(),
		MaxSinPhi:            cfg.GetMaxSinPhi(),
		UseFixedClusterError: cfg.GetUseFixedClusterError(),
		FixedClusterError:    cfg.GetFixedClusterError(),
		Workers:              cfg.GetWorkers(),
	}
}
