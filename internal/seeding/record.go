package seeding

import "github.com/banshee-data/trackfit/internal/kalman"

// TrackRecord is the output of one accepted chain. Positions are in cm at
// the last fitted hit; Phi is the momentum azimuth there.
type TrackRecord struct {
	X0, Y0, Z0   float64
	Slope        float64 // pz / pT
	QOverR       float64 // 1/cm
	Pt, PtErr    float64 // GeV/c
	Phi, PhiErr  float64
	ZErr         float64
	Curvature    float64 // signed, 1/cm
	CurvatureErr float64
	Chi2         float64
	NDF          int
	Cov          [kalman.NCov]float64

	keys []HitKey
}

// Keys returns a copy of the hit keys in traversal order.
func (r TrackRecord) Keys() []HitKey {
	out := make([]HitKey, len(r.keys))
	copy(out, r.keys)
	return out
}

// NHits is the number of hits in the record.
func (r TrackRecord) NHits() int { return len(r.keys) }
