package fit

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/floats"
)

// maxNewtonIterations caps the root search; 4-6 iterations are typical.
const maxNewtonIterations = 99

// Circle is a fitted circle in the transverse plane.
type Circle struct {
	R  float64 // Radius
	X0 float64 // Centre x
	Y0 float64 // Centre y
}

// Valid reports whether the fit produced a finite radius and centre.
func (c Circle) Valid() bool {
	return isFinite(c.R) && isFinite(c.X0) && isFinite(c.Y0)
}

// Center returns the circle centre as a point.
func (c Circle) Center() orb.Point {
	return orb.Point{c.X0, c.Y0}
}

// Curvature returns 1/R.
func (c Circle) Curvature() float64 {
	return 1 / c.R
}

// FitCircle fits a circle to points with Taubin's algebraic method
// (G. Taubin, IEEE Trans. PAMI 13 (1991) 1115). The characteristic
// polynomial is solved by Newton's method from x=0, which converges to the
// correct root.
func FitCircle(points []orb.Point) Circle {
	n := float64(len(points))
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X()
		ys[i] = p.Y()
	}
	meanX := floats.Sum(xs) / n
	meanY := floats.Sum(ys) / n

	// Centred moments.
	var mxx, myy, mxy, mxz, myz, mzz float64
	for i := range xs {
		xi := xs[i] - meanX
		yi := ys[i] - meanY
		zi := xi*xi + yi*yi

		mxy += xi * yi
		mxx += xi * xi
		myy += yi * yi
		mxz += xi * zi
		myz += yi * zi
		mzz += zi * zi
	}
	mxx /= n
	myy /= n
	mxy /= n
	mxz /= n
	myz /= n
	mzz /= n

	// Coefficients of the characteristic polynomial.
	mz := mxx + myy
	covXY := mxx*myy - mxy*mxy
	varZ := mzz - mz*mz
	a3 := 4 * mz
	a2 := -3*mz*mz - mzz
	a1 := varZ*mz + 4*covXY*mz - mxz*mxz - myz*myz
	a0 := mxz*(mxz*myy-myz*mxy) + myz*(myz*mxx-mxz*mxy) - varZ*covXY
	a22 := a2 + a2
	a33 := a3 + a3 + a3

	x := 0.0
	y := a0
	for iter := 0; iter < maxNewtonIterations; iter++ {
		dy := a1 + x*(a22+a33*x)
		xNew := x - y/dy
		if xNew == x || !isFinite(xNew) {
			break
		}
		yNew := a0 + xNew*(a1+xNew*(a2+xNew*a3))
		if math.Abs(yNew) >= math.Abs(y) {
			break
		}
		x, y = xNew, yNew
	}

	det := x*x - x*mz + covXY
	xc := (mxz*(myy-x) - myz*mxy) / det / 2
	yc := (myz*(mxx-x) - mxz*mxy) / det / 2

	return Circle{
		R:  math.Sqrt(xc*xc + yc*yc + mz),
		X0: xc + meanX,
		Y0: yc + meanY,
	}
}

// CircleResiduals returns the signed radial distance of each point from c:
// positive outside the circle, negative inside.
func CircleResiduals(points []orb.Point, c Circle) []float64 {
	center := c.Center()
	res := make([]float64, len(points))
	for i, p := range points {
		res[i] = planar.Distance(p, center) - c.R
	}
	return res
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
