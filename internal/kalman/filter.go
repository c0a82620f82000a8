package kalman

import "math"

// minInnovationVariance below which a measurement is refused.
const minInnovationVariance = 1e-8

// Filter adds a (y, z) measurement with variances err2Y and err2Z. The two
// coordinates are treated as independent: y updates Y, SinPhi and QPt, z
// updates Z and DzDs. On success chi2 grows by the two normalised
// residuals and NDF by 2. A maxSinPhi <= 0 disables the bound check.
func (t *TrackParam) Filter(y, z, err2Y, err2Z, maxSinPhi float64) error {
	c00 := t.cov.At(IdxY, IdxY)
	c11 := t.cov.At(IdxZ, IdxZ)
	c20 := t.cov.At(IdxSinPhi, IdxY)
	c31 := t.cov.At(IdxDzDs, IdxZ)
	c40 := t.cov.At(IdxQPt, IdxY)

	s0 := err2Y + c00
	s1 := err2Z + c11
	if !(s0 >= minInnovationVariance) || !(s1 >= minInnovationVariance) {
		return ErrSingularInnovation
	}

	r0 := y - t.p[IdxY]
	r1 := z - t.p[IdxZ]
	mS0 := 1 / s0
	mS1 := 1 / s1

	// K = C Hᵀ S⁻¹
	k00 := c00 * mS0
	k20 := c20 * mS0
	k40 := c40 * mS0
	k11 := c11 * mS1
	k31 := c31 * mS1

	sinPhi := t.p[IdxSinPhi] + k20*r0
	if maxSinPhi > 0 && !(math.Abs(sinPhi) < maxSinPhi) {
		return ErrSinPhiBound
	}

	t.ndf += 2
	t.chi2 += mS0*r0*r0 + mS1*r1*r1

	t.p[IdxY] += k00 * r0
	t.p[IdxZ] += k11 * r1
	t.p[IdxSinPhi] = sinPhi
	t.p[IdxDzDs] += k31 * r1
	t.p[IdxQPt] += k40 * r0

	c22 := t.cov.At(IdxSinPhi, IdxSinPhi)
	c42 := t.cov.At(IdxQPt, IdxSinPhi)
	c44 := t.cov.At(IdxQPt, IdxQPt)
	c33 := t.cov.At(IdxDzDs, IdxDzDs)

	t.cov.SetSym(IdxY, IdxY, c00-k00*c00)
	t.cov.SetSym(IdxSinPhi, IdxY, c20-k20*c00)
	t.cov.SetSym(IdxSinPhi, IdxSinPhi, c22-k20*c20)
	t.cov.SetSym(IdxQPt, IdxY, c40-k40*c00)
	t.cov.SetSym(IdxQPt, IdxSinPhi, c42-k40*c20)
	t.cov.SetSym(IdxQPt, IdxQPt, c44-k40*c40)

	t.cov.SetSym(IdxZ, IdxZ, c11-k11*c11)
	t.cov.SetSym(IdxDzDs, IdxZ, c31-k31*c11)
	t.cov.SetSym(IdxDzDs, IdxDzDs, c33-k31*c31)
	return nil
}
