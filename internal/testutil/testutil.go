// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Helix describes a track leaving the origin. Lengths are cm.
type Helix struct {
	R    float64 // transverse bending radius
	Phi0 float64 // azimuth of the initial direction
	// Turn is +1 for counter-clockwise bending seen from +z, -1 for clockwise.
	Turn float64
	DzDs float64 // dz per unit transverse path length
}

// Center returns the centre of the transverse circle.
func (h Helix) Center() (x, y float64) {
	return -h.Turn * h.R * math.Sin(h.Phi0), h.Turn * h.R * math.Cos(h.Phi0)
}

// TurningAngle is the angle swept between the origin and transverse
// radius r. It is NaN when r > 2R.
func (h Helix) TurningAngle(r float64) float64 {
	return 2 * math.Asin(r/(2*h.R))
}

// DirectionAt is the azimuth of the track direction at radius r.
func (h Helix) DirectionAt(r float64) float64 {
	return h.Phi0 + h.Turn*h.TurningAngle(r)
}

// Hits returns the helix points at the given transverse radii.
func (h Helix) Hits(radii []float64) [][3]float64 {
	cx, cy := h.Center()
	out := make([][3]float64, len(radii))
	for i, r := range radii {
		theta := h.TurningAngle(r)
		a := h.Phi0 + h.Turn*theta
		out[i] = [3]float64{
			cx + h.Turn*h.R*math.Sin(a),
			cy - h.Turn*h.R*math.Cos(a),
			h.DzDs * h.R * theta,
		}
	}
	return out
}

// Radii returns n radii evenly spaced from first to last inclusive.
func Radii(first, last float64, n int) []float64 {
	if n == 1 {
		return []float64{first}
	}
	out := make([]float64, n)
	step := (last - first) / float64(n-1)
	for i := range out {
		out[i] = first + step*float64(i)
	}
	return out
}
