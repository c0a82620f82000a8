// Package field supplies the longitudinal magnetic field component used by
// the seed fitter. Coordinates are centimetres and values are tesla.
package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// DefaultConstantTesla is the nominal solenoid field.
const DefaultConstantTesla = 1.4

// Map resolves Bz at a point. Implementations must be safe for concurrent
// reads; the fitter calls them from several goroutines in parallel mode.
type Map interface {
	Bz(x, y, z float64) float64
}

// Constant is a uniform field.
type Constant float64

// Bz returns the constant value regardless of position.
func (c Constant) Bz(x, y, z float64) float64 { return float64(c) }

// Func adapts a plain function to Map.
type Func func(x, y, z float64) float64

// Bz calls f.
func (f Func) Bz(x, y, z float64) float64 { return f(x, y, z) }

// Select returns the map the fitter should query. Uniform mode, or a nil
// map, yields Constant(constTesla).
func Select(m Map, useConstant bool, constTesla float64) Map {
	if useConstant || m == nil {
		return Constant(constTesla)
	}
	return m
}

// Solenoid is an idealised finite solenoid: Central inside |z| <= HalfLength,
// falling off as a Lorentzian of width Fringe beyond the ends.
type Solenoid struct {
	Central    float64
	HalfLength float64
	Fringe     float64
}

// Bz implements Map.
func (s Solenoid) Bz(x, y, z float64) float64 {
	over := math.Abs(z) - s.HalfLength
	if over <= 0 || s.Fringe <= 0 {
		if over > 0 {
			return 0
		}
		return s.Central
	}
	u := over / s.Fringe
	return s.Central / (1 + u*u)
}

// RZGrid is a cylindrically symmetric field table interpolated bilinearly in
// (r, z). Outside the table the nearest edge value is used.
type RZGrid struct {
	r    []float64
	rows []interp.PiecewiseLinear // one z-interpolator per r node
}

// NewRZGrid builds a grid from strictly increasing r and z node coordinates
// and values[i][j] = Bz(r[i], z[j]).
func NewRZGrid(r, z []float64, values [][]float64) (*RZGrid, error) {
	if len(r) < 2 {
		return nil, fmt.Errorf("rz grid needs at least 2 r nodes, got %d", len(r))
	}
	if !strictlyIncreasing(r) {
		return nil, fmt.Errorf("rz grid r nodes must be strictly increasing")
	}
	if len(z) < 2 || !strictlyIncreasing(z) {
		return nil, fmt.Errorf("rz grid needs at least 2 strictly increasing z nodes")
	}
	if len(values) != len(r) {
		return nil, fmt.Errorf("rz grid has %d value rows for %d r nodes", len(values), len(r))
	}
	g := &RZGrid{
		r:    append([]float64(nil), r...),
		rows: make([]interp.PiecewiseLinear, len(r)),
	}
	for i, row := range values {
		if len(row) != len(z) {
			return nil, fmt.Errorf("rz grid row %d has %d values for %d z nodes", i, len(row), len(z))
		}
		if err := g.rows[i].Fit(z, row); err != nil {
			return nil, fmt.Errorf("rz grid row %d: %w", i, err)
		}
	}
	return g, nil
}

func strictlyIncreasing(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if !(v[i] > v[i-1]) {
			return false
		}
	}
	return true
}

// Bz implements Map.
func (g *RZGrid) Bz(x, y, z float64) float64 {
	col := make([]float64, len(g.r))
	for i := range g.rows {
		col[i] = g.rows[i].Predict(z)
	}
	var radial interp.PiecewiseLinear
	if err := radial.Fit(g.r, col); err != nil {
		return math.NaN()
	}
	return radial.Predict(math.Hypot(x, y))
}
