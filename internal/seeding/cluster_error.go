package seeding

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// ClusterErrorModel turns a hit's error description into the variances the
// filter consumes. With UseFixed set, every hit gets the same diagonal
// global covariance built from the x, y, z errors in Fixed; otherwise the
// hit's local covariance is rotated into the global frame by the hit
// azimuth.
type ClusterErrorModel struct {
	UseFixed bool
	Fixed    [3]float64
}

// Global returns the 3x3 global covariance of a hit at pos.
func (m ClusterErrorModel) Global(local LocalError, pos Point3) *mat.SymDense {
	if m.UseFixed {
		return mat.NewSymDense(3, []float64{
			m.Fixed[0] * m.Fixed[0], 0, 0,
			0, m.Fixed[1] * m.Fixed[1], 0,
			0, 0, m.Fixed[2] * m.Fixed[2],
		})
	}

	// Local axes are (radial, r-phi, z).
	l := mat.NewSymDense(3, []float64{
		0, 0, 0,
		0, local.RPhi2, local.RPhiZ,
		0, local.RPhiZ, local.Z2,
	})
	phi := pos.Phi()
	c, s := math.Cos(phi), math.Sin(phi)
	rot := mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})

	g := mat.NewSymDense(3, nil)
	var rl, rlrt mat.Dense
	rl.Mul(rot, l)
	rlrt.Mul(&rl, rot.T())
	for i := 0; i < 3; i++ {
		for j := 0; j <= i; j++ {
			g.SetSym(i, j, 0.5*(rlrt.At(i, j)+rlrt.At(j, i)))
		}
	}
	return g
}

// Project returns the variances along the local Y axis of the frame at
// azimuth phi and along z.
func (m ClusterErrorModel) Project(global mat.Symmetric, phi float64) (err2Y, err2Z float64) {
	u := mat.NewVecDense(3, []float64{-math.Sin(phi), math.Cos(phi), 0})
	return mat.Inner(u, global, u), global.At(2, 2)
}
