package fit

import (
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/stat"
)

// Line is z = Slope*r + Intercept.
type Line struct {
	Slope     float64
	Intercept float64
}

// Valid reports whether both coefficients are finite.
func (l Line) Valid() bool {
	return isFinite(l.Slope) && isFinite(l.Intercept)
}

// At evaluates the line at r.
func (l Line) At(r float64) float64 {
	return l.Slope*r + l.Intercept
}

// FitLine fits z against r by ordinary least squares. Each point is
// (r, z). All points at the same r give a non-finite slope.
func FitLine(points []orb.Point) Line {
	if len(points) < 2 {
		return Line{Slope: math.NaN(), Intercept: math.NaN()}
	}
	rs := make([]float64, len(points))
	zs := make([]float64, len(points))
	for i, p := range points {
		rs[i] = p.X()
		zs[i] = p.Y()
	}
	if stat.Variance(rs, nil) == 0 {
		return Line{Slope: math.NaN(), Intercept: math.NaN()}
	}
	intercept, slope := stat.LinearRegression(rs, zs, nil, false)
	return Line{Slope: slope, Intercept: intercept}
}

// LineResiduals returns the perpendicular distance of each (r, z) point
// from l.
func LineResiduals(points []orb.Point, l Line) []float64 {
	norm := math.Hypot(l.Slope, 1)
	res := make([]float64, len(points))
	for i, p := range points {
		res[i] = math.Abs(-l.Slope*p.X()+p.Y()-l.Intercept) / norm
	}
	return res
}
