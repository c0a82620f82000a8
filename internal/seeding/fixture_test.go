package seeding

import (
	"github.com/banshee-data/trackfit/internal/testutil"
)

const (
	testRPhiErr2 = 1e-4
	testZErr2    = 1e-4
)

// batch accumulates chains and their lookups for a test.
type batch struct {
	pos    PositionMap
	errs   ErrorMap
	chains [][]HitKey
}

func newBatch() *batch {
	return &batch{pos: PositionMap{}, errs: ErrorMap{}}
}

// add registers hits as a new chain. Hit i gets layer i, so a chain given
// inner hit first is reversed by the fitter.
func (b *batch) add(hits [][3]float64) []HitKey {
	idx := uint32(len(b.chains))
	chain := make([]HitKey, len(hits))
	for i, h := range hits {
		k := NewHitKey(uint8(i), idx)
		b.pos[k] = Point3{X: h[0], Y: h[1], Z: h[2]}
		b.errs[k] = LocalError{RPhi2: testRPhiErr2, Z2: testZErr2}
		chain[i] = k
	}
	b.chains = append(b.chains, chain)
	return chain
}

// addKeys registers a chain with explicit layers.
func (b *batch) addKeys(hits [][3]float64, layers []uint8) []HitKey {
	idx := uint32(len(b.chains))
	chain := make([]HitKey, len(hits))
	for i, h := range hits {
		k := NewHitKey(layers[i], idx)
		b.pos[k] = Point3{X: h[0], Y: h[1], Z: h[2]}
		b.errs[k] = LocalError{RPhi2: testRPhiErr2, Z2: testZErr2}
		chain[i] = k
	}
	b.chains = append(b.chains, chain)
	return chain
}

func constFieldConfig() FitterConfig {
	cfg := DefaultFitterConfig()
	cfg.UseConstField = true
	cfg.ConstFieldTesla = 1.4
	return cfg
}

func (b *batch) fitter(cfg FitterConfig) *Fitter {
	return NewFitter(cfg, b.pos, b.errs, nil)
}

// helixChain adds a noiseless chain on a helix from the origin.
func (b *batch) helixChain(h testutil.Helix, first, last float64, n int) []HitKey {
	return b.add(h.Hits(testutil.Radii(first, last, n)))
}
