package kalman

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// minRotateCos rejects rotations where either frame sees the track at
	// almost 90 degrees.
	minRotateCos = 1e-2
	// minTransportCos guards the 1/cos terms of the transport Jacobian.
	minTransportCos = 1e-4
	// minCurvature below which the path length is taken as the chord.
	minCurvature = 1e-4
)

// Rotate re-expresses the state in a frame rotated by alpha about z.
// The physical point is unchanged; Y and SinPhi are rotated and their
// variances rescaled by the rotation Jacobian.
func (t *TrackParam) Rotate(alpha, maxSinPhi float64) error {
	cA := math.Cos(alpha)
	sA := math.Sin(alpha)
	x0, y0 := t.x, t.p[IdxY]
	sP := t.p[IdxSinPhi]
	cP := t.CosPhi()

	cosPhi := cP*cA + sP*sA
	sinPhi := -cP*sA + sP*cA

	if !(math.Abs(sinPhi) <= maxSinPhi) {
		return ErrSinPhiBound
	}
	if math.Abs(cosPhi) < minRotateCos || math.Abs(cP) < minRotateCos {
		return ErrDegenerateDirection
	}

	// J = diag(j0, 1, j2, 1, 1)
	j0 := cP / cosPhi
	j2 := cosPhi / cP

	t.x = x0*cA + y0*sA
	t.p[IdxY] = -x0*sA + y0*cA
	t.p[IdxSinPhi] = sinPhi
	if cosPhi < 0 {
		t.signCosPhi = -1
	} else {
		t.signCosPhi = 1
	}

	j := mat.NewDense(NPar, NPar, nil)
	j.Set(IdxY, IdxY, j0)
	j.Set(IdxZ, IdxZ, 1)
	j.Set(IdxSinPhi, IdxSinPhi, j2)
	j.Set(IdxDzDs, IdxDzDs, 1)
	j.Set(IdxQPt, IdxQPt, 1)
	t.transformCov(j)
	return nil
}

// TransportToX moves the state along its helix to local X = x in a scaled
// field bz (tesla times the field scale). The step is exact for a uniform
// field over the step; the covariance is propagated with the linearised
// Jacobian.
func (t *TrackParam) TransportToX(x, bz, maxSinPhi float64) error {
	ex := t.CosPhi()
	ey := t.p[IdxSinPhi]
	k := -t.p[IdxQPt] * bz
	dx := x - t.x

	ey1 := k*dx + ey
	if !(math.Abs(ey1) <= maxSinPhi) {
		return ErrSinPhiBound
	}
	ex1 := math.Sqrt(1 - ey1*ey1)
	if ex < 0 {
		ex1 = -ex1
	}

	ss := ey + ey1
	cc := ex + ex1
	if math.Abs(cc) < minTransportCos || math.Abs(ex) < minTransportCos || math.Abs(ex1) < minTransportCos {
		return ErrDegenerateDirection
	}

	tg := ss / cc // tan((phi0+phi1)/2)
	dy := dx * tg
	dl := dx * math.Sqrt(1+tg*tg)
	if cc < 0 {
		dl = -dl
	}
	dSin := math.Max(-1, math.Min(1, dl*k/2))
	dS := dl
	if math.Abs(k) > minCurvature {
		dS = 2 * math.Asin(dSin) / k
	}
	dz := dS * t.p[IdxDzDs]

	cci := 1 / cc
	exi := 1 / ex
	ex1i := 1 / ex1

	// F = [ 1 0 h2 0  h4   ]
	//     [ 0 1 0  dS 0    ]
	//     [ 0 0 1  0  dxBz ]
	//     [ 0 0 0  1  0    ]
	//     [ 0 0 0  0  1    ]
	h2 := dx * (1 + ey*ey1 + ex*ex1) * exi * ex1i * cci
	h4 := dx * dx * (cc + ss*ey1*ex1i) * cci * cci * (-bz)
	dxBz := dx * (-bz)

	t.x += dx
	t.p[IdxY] += dy
	t.p[IdxZ] += dz
	t.p[IdxSinPhi] = ey1

	f := mat.NewDense(NPar, NPar, nil)
	for i := 0; i < NPar; i++ {
		f.Set(i, i, 1)
	}
	f.Set(IdxY, IdxSinPhi, h2)
	f.Set(IdxY, IdxQPt, h4)
	f.Set(IdxZ, IdxDzDs, dS)
	f.Set(IdxSinPhi, IdxQPt, dxBz)
	t.transformCov(f)
	return nil
}
