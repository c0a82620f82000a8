package seeding

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownHit is returned by lookups for a key they do not hold.
var ErrUnknownHit = errors.New("seeding: unknown hit key")

// HitKey identifies a reconstructed hit. The detector layer is stored in
// the top 8 bits; the remaining bits are opaque to the fitter.
type HitKey uint64

const layerShift = 56

// NewHitKey packs a layer and a per-layer index into a key.
func NewHitKey(layer uint8, index uint32) HitKey {
	return HitKey(uint64(layer)<<layerShift | uint64(index))
}

// Layer returns the detector layer encoded in the key.
func (k HitKey) Layer() uint8 {
	return uint8(k >> layerShift)
}

func (k HitKey) String() string {
	return fmt.Sprintf("%d:%d", k.Layer(), uint64(k)&(1<<layerShift-1))
}

// Point3 is a global position in cm.
type Point3 struct {
	X, Y, Z float64
}

// Radius is the transverse distance from the beam axis.
func (p Point3) Radius() float64 { return math.Hypot(p.X, p.Y) }

// Phi is the azimuth of the point.
func (p Point3) Phi() float64 { return math.Atan2(p.Y, p.X) }

// LocalError is a hit's covariance in its own frame: r-phi and z variances
// and their correlation. The radial variance is zero.
type LocalError struct {
	RPhi2 float64 `json:"rphi2"`
	Z2    float64 `json:"z2"`
	RPhiZ float64 `json:"rphi_z"`
}

// PositionLookup resolves hit keys to global positions. Implementations
// are read-only during a fit and must tolerate concurrent calls.
type PositionLookup interface {
	LookupPosition(key HitKey) (Point3, error)
}

// ErrorLookup resolves hit keys to local covariances. Same concurrency
// contract as PositionLookup.
type ErrorLookup interface {
	LookupError(key HitKey) (LocalError, error)
}

// PositionMap is a map-backed PositionLookup.
type PositionMap map[HitKey]Point3

// LookupPosition returns the stored position or ErrUnknownHit.
func (m PositionMap) LookupPosition(key HitKey) (Point3, error) {
	p, ok := m[key]
	if !ok {
		return Point3{}, fmt.Errorf("%w: %v", ErrUnknownHit, key)
	}
	return p, nil
}

// ErrorMap is a map-backed ErrorLookup.
type ErrorMap map[HitKey]LocalError

// LookupError returns the stored covariance or ErrUnknownHit.
func (m ErrorMap) LookupError(key HitKey) (LocalError, error) {
	e, ok := m[key]
	if !ok {
		return LocalError{}, fmt.Errorf("%w: %v", ErrUnknownHit, key)
	}
	return e, nil
}
