package kalman

import "errors"

var (
	// ErrSinPhiBound indicates the step would push |SinPhi| past the
	// configured limit of the linearisation.
	ErrSinPhiBound = errors.New("kalman: sin(phi) exceeds bound")

	// ErrDegenerateDirection indicates the track runs almost parallel to the
	// local Y axis, where the X parameterisation breaks down.
	ErrDegenerateDirection = errors.New("kalman: track direction degenerate in local frame")

	// ErrSingularInnovation indicates an innovation variance too small to
	// invert.
	ErrSingularInnovation = errors.New("kalman: innovation variance too small")
)
