package kalman

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// State vector indices.
const (
	IdxY = iota
	IdxZ
	IdxSinPhi
	IdxDzDs
	IdxQPt

	NPar
)

// NCov is the number of independent covariance elements.
const NCov = NPar * (NPar + 1) / 2

// Initial diagonal covariance. QPt is left wide so the first updates can
// move it away from the circle-fit estimate.
var initialCovDiag = [NPar]float64{1, 1, 1, 1, 10}

// TrackParam is the mutable helical state of one seed. It is owned by a
// single fit and is not safe for concurrent use.
type TrackParam struct {
	x          float64
	signCosPhi float64
	p          [NPar]float64
	cov        *mat.SymDense
	chi2       float64
	ndf        int
}

// NewTrackParam returns a state initialised with InitParam.
func NewTrackParam() *TrackParam {
	t := &TrackParam{}
	t.InitParam()
	return t
}

// InitParam resets the state: zero parameters, forward direction, diagonal
// covariance, chi2 = 0 and NDF = -3 (five parameters, two per hit).
func (t *TrackParam) InitParam() {
	t.x = 0
	t.p = [NPar]float64{}
	t.signCosPhi = 1
	t.chi2 = 0
	t.ndf = -3
	t.cov = mat.NewSymDense(NPar, nil)
	for i, v := range initialCovDiag {
		t.cov.SetSym(i, i, v)
	}
}

// Clone returns a deep copy.
func (t *TrackParam) Clone() *TrackParam {
	c := *t
	c.cov = mat.NewSymDense(NPar, nil)
	c.cov.CopySym(t.cov)
	return &c
}

func (t *TrackParam) X() float64      { return t.x }
func (t *TrackParam) Y() float64      { return t.p[IdxY] }
func (t *TrackParam) Z() float64      { return t.p[IdxZ] }
func (t *TrackParam) SinPhi() float64 { return t.p[IdxSinPhi] }
func (t *TrackParam) DzDs() float64   { return t.p[IdxDzDs] }
func (t *TrackParam) QPt() float64    { return t.p[IdxQPt] }
func (t *TrackParam) Chi2() float64   { return t.chi2 }
func (t *TrackParam) NDF() int        { return t.ndf }

func (t *TrackParam) SetX(v float64)      { t.x = v }
func (t *TrackParam) SetY(v float64)      { t.p[IdxY] = v }
func (t *TrackParam) SetZ(v float64)      { t.p[IdxZ] = v }
func (t *TrackParam) SetSinPhi(v float64) { t.p[IdxSinPhi] = v }
func (t *TrackParam) SetDzDs(v float64)   { t.p[IdxDzDs] = v }
func (t *TrackParam) SetQPt(v float64)    { t.p[IdxQPt] = v }

// SignCosPhi is +1 when the track crosses the frame in increasing X.
func (t *TrackParam) SignCosPhi() float64 { return t.signCosPhi }

// CosPhi is derived from SinPhi and the stored sign.
func (t *TrackParam) CosPhi() float64 {
	return t.signCosPhi * math.Sqrt(1-t.p[IdxSinPhi]*t.p[IdxSinPhi])
}

func (t *TrackParam) Err2Y() float64      { return t.cov.At(IdxY, IdxY) }
func (t *TrackParam) Err2Z() float64      { return t.cov.At(IdxZ, IdxZ) }
func (t *TrackParam) Err2SinPhi() float64 { return t.cov.At(IdxSinPhi, IdxSinPhi) }
func (t *TrackParam) Err2DzDs() float64   { return t.cov.At(IdxDzDs, IdxDzDs) }
func (t *TrackParam) Err2QPt() float64    { return t.cov.At(IdxQPt, IdxQPt) }

// Kappa is the signed local curvature (1/cm) for a scaled field bz.
func (t *TrackParam) Kappa(bz float64) float64 {
	return -t.p[IdxQPt] * bz
}

// CovAt returns one covariance element.
func (t *TrackParam) CovAt(i, j int) float64 { return t.cov.At(i, j) }

// SetCovAt sets one covariance element and its mirror.
func (t *TrackParam) SetCovAt(i, j int, v float64) { t.cov.SetSym(i, j, v) }

// Cov returns the covariance packed as a lower triangle in row order:
// yy, zy, zz, sy, sz, ss, ty, tz, ts, tt, qy, qz, qs, qt, qq.
func (t *TrackParam) Cov() [NCov]float64 {
	var out [NCov]float64
	n := 0
	for i := 0; i < NPar; i++ {
		for j := 0; j <= i; j++ {
			out[n] = t.cov.At(i, j)
			n++
		}
	}
	return out
}

// IsFinite reports whether X, every parameter and every covariance element
// is finite.
func (t *TrackParam) IsFinite() bool {
	if !finite(t.x) {
		return false
	}
	for _, v := range t.p {
		if !finite(v) {
			return false
		}
	}
	for _, v := range t.Cov() {
		if !finite(v) {
			return false
		}
	}
	return true
}

// transformCov replaces the covariance with F C Fᵀ.
func (t *TrackParam) transformCov(f *mat.Dense) {
	var fc, fcft mat.Dense
	fc.Mul(f, t.cov)
	fcft.Mul(&fc, f.T())
	for i := 0; i < NPar; i++ {
		for j := 0; j <= i; j++ {
			t.cov.SetSym(i, j, 0.5*(fcft.At(i, j)+fcft.At(j, i)))
		}
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
