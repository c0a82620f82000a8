// Package units provides shared physics constants and conversions between
// track curvature, transverse momentum and magnetic field.
//
// Lengths are centimetres, fields are tesla and momenta are GeV/c unless a
// function says otherwise.
package units

import "math"

// Momentum unit constants
const (
	GeV = "gev"
	MeV = "mev"
)

// ValidUnits contains all valid momentum unit values
var ValidUnits = []string{GeV, MeV}

// SpeedOfLight is c in GeV/(kG·cm), the factor that turns field times
// q/pt into curvature.
const SpeedOfLight = 0.000299792458

// DefaultFieldScale converts a field in tesla into the kG-scaled value the
// helix propagator expects (10 kG per tesla times c).
const DefaultFieldScale = 10 * SpeedOfLight

// ptPerTeslaMetre is the 0.3 in pt = 0.3·B·R.
const ptPerTeslaMetre = 0.3

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "gev, mev"
}

// ConvertMomentum converts a momentum from GeV/c to the target units.
func ConvertMomentum(pGeV float64, targetUnits string) float64 {
	switch targetUnits {
	case MeV:
		return pGeV * 1000
	default:
		return pGeV
	}
}

// PtFromRadius returns the transverse momentum of a track with bending
// radius radiusCm in a field of bzTesla.
func PtFromRadius(radiusCm, bzTesla float64) float64 {
	return ptPerTeslaMetre * radiusCm / 100 * bzTesla
}

// QOverR converts a signed q/pt into a signed q/R (1/cm) at field bzTesla.
func QOverR(qOverPt, bzTesla float64) float64 {
	return qOverPt * ptPerTeslaMetre * bzTesla / 100
}

// WrapDeltaPhi folds an azimuth difference into [-π, π].
func WrapDeltaPhi(dphi float64) float64 {
	if math.IsInf(dphi, 0) {
		return math.NaN()
	}
	for dphi > math.Pi {
		dphi -= 2 * math.Pi
	}
	for dphi < -math.Pi {
		dphi += 2 * math.Pi
	}
	return dphi
}
