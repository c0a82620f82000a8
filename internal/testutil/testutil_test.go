package testutil

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestAssertNoError_NilErr tests nil error path.
func TestAssertNoError_NilErr(t *testing.T) {
	fakeT := &testing.T{}
	AssertNoError(fakeT, nil)
	if fakeT.Failed() {
		t.Error("expected no failure for nil error")
	}
}

// TestAssertError_WithErr tests non-nil error path.
func TestAssertError_WithErr(t *testing.T) {
	fakeT := &testing.T{}
	AssertError(fakeT, errors.New("something wrong"))
	if fakeT.Failed() {
		t.Error("expected no failure when error is present")
	}
}

func TestHelixHits_OnCircleAndRadius(t *testing.T) {
	for _, turn := range []float64{1, -1} {
		h := Helix{R: 150, Phi0: 0.7, Turn: turn, DzDs: 0.3}
		radii := Radii(20, 80, 7)
		cx, cy := h.Center()
		for i, p := range h.Hits(radii) {
			assert.InDelta(t, radii[i], math.Hypot(p[0], p[1]), 1e-9)
			assert.InDelta(t, h.R, math.Hypot(p[0]-cx, p[1]-cy), 1e-9)
			assert.InDelta(t, h.DzDs*h.R*h.TurningAngle(radii[i]), p[2], 1e-12)
		}
	}
}

func TestHelixHits_BendingDirection(t *testing.T) {
	radii := []float64{10, 50}

	ccw := Helix{R: 100, Turn: 1}.Hits(radii)
	assert.Greater(t, math.Atan2(ccw[1][1], ccw[1][0]), math.Atan2(ccw[0][1], ccw[0][0]))

	cw := Helix{R: 100, Turn: -1}.Hits(radii)
	assert.Less(t, math.Atan2(cw[1][1], cw[1][0]), math.Atan2(cw[0][1], cw[0][0]))
}

func TestHelix_DirectionAt(t *testing.T) {
	h := Helix{R: 100, Phi0: 0.2, Turn: 1}
	// Finite-difference direction between two close points.
	pts := h.Hits([]float64{40, 40.001})
	got := math.Atan2(pts[1][1]-pts[0][1], pts[1][0]-pts[0][0])
	assert.InDelta(t, h.DirectionAt(40), got, 1e-4)
}

func TestRadii(t *testing.T) {
	assert.Equal(t, []float64{10, 15, 20}, Radii(10, 20, 3))
	assert.Equal(t, []float64{5}, Radii(5, 9, 1))
}
