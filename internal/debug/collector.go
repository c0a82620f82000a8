// Package debug provides instrumentation for the seed fitter.
// The Collector captures per-chain internals (circle seeds, per-hit
// propagation steps, rejections) for offline inspection and tuning.
package debug

import (
	"sort"
	"sync"
)

// Pre-allocation capacities for the record slices. A typical batch walks
// a few hundred chains of ten to fifty hits each.
const (
	defaultSeedCapacity      = 256
	defaultStepCapacity      = 4096
	defaultRejectionCapacity = 64
)

// Collector accumulates debug artifacts while a batch of chains is fitted.
// It is safe for concurrent use so the parallel driver can share one.
//
// Call Record*() during fitting, then Emit() at batch completion to extract
// the artifacts. Emit resets the collector.
type Collector struct {
	mu      sync.Mutex
	enabled bool
	current *Report
}

// Report contains all debug artifacts for one batch.
type Report struct {
	Seeds      []SeedRecord
	Steps      []StepRecord
	Rejections []Rejection
}

// SeedRecord captures the circle fit and initial charge estimate of a chain.
type SeedRecord struct {
	Chain   int
	R       float64 // circle radius (cm)
	X0      float64 // circle centre
	Y0      float64
	InitQPt float64 // q/pt before any filter update

	// Largest |distance to circle| over the chain's hits.
	MaxCircleResidual float64
	// Straight-line z(r) through the hits and its largest residual.
	LineSlope       float64
	LineIntercept   float64
	MaxLineResidual float64
}

// StepRecord captures one accepted hit update along a chain.
type StepRecord struct {
	Chain int
	Step  int // 1 for the second hit in traversal order
	Layer uint8

	// Hit position in world coordinates.
	HitX, HitY, HitZ float64
	// Track position after transport, before the update.
	TrackX, TrackY, TrackZ float64
	// Square roots of the diagonal of the hit's global covariance.
	HitErrX, HitErrY, HitErrZ float64

	PhiErr float64
	Chi2   float64
	NDF    int
}

// Rejection records why a chain produced no output.
type Rejection struct {
	Chain  int
	Kind   string
	Detail string
}

// NewCollector creates a collector that's initially disabled.
// Call SetEnabled(true) to begin collecting artifacts.
func NewCollector() *Collector {
	return &Collector{}
}

// SetEnabled controls whether the collector records artifacts.
// When disabled, all Record*() calls are no-ops.
func (c *Collector) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
	if enabled && c.current == nil {
		c.current = newReport()
	}
}

// IsEnabled returns true if the collector is actively recording.
func (c *Collector) IsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

func newReport() *Report {
	return &Report{
		Seeds:      make([]SeedRecord, 0, defaultSeedCapacity),
		Steps:      make([]StepRecord, 0, defaultStepCapacity),
		Rejections: make([]Rejection, 0, defaultRejectionCapacity),
	}
}

// RecordSeed captures the seed of a chain.
func (c *Collector) RecordSeed(rec SeedRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.current.Seeds = append(c.current.Seeds, rec)
}

// RecordStep captures one propagation and update step.
func (c *Collector) RecordStep(rec StepRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.current.Steps = append(c.current.Steps, rec)
}

// RecordRejection captures a rejected chain.
func (c *Collector) RecordRejection(rec Rejection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.current.Rejections = append(c.current.Rejections, rec)
}

// Emit returns the accumulated report and resets the collector for the next
// batch. Records are ordered by chain and then by step, so the output does
// not depend on the order in which parallel workers finished.
// Returns nil if the collector is disabled.
func (c *Collector) Emit() *Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled || c.current == nil {
		return nil
	}
	r := c.current
	c.current = newReport()

	sort.SliceStable(r.Seeds, func(i, j int) bool { return r.Seeds[i].Chain < r.Seeds[j].Chain })
	sort.SliceStable(r.Steps, func(i, j int) bool {
		if r.Steps[i].Chain != r.Steps[j].Chain {
			return r.Steps[i].Chain < r.Steps[j].Chain
		}
		return r.Steps[i].Step < r.Steps[j].Step
	})
	sort.SliceStable(r.Rejections, func(i, j int) bool { return r.Rejections[i].Chain < r.Rejections[j].Chain })
	return r
}

// Reset discards any accumulated artifacts.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled {
		c.current = newReport()
	} else {
		c.current = nil
	}
}
