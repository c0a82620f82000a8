// Package kalman owns the local-frame helical track state used by the seed
// fitter and the three operations that move it along a hit chain: frame
// rotation, transport to a new local X, and the decoupled y/z measurement
// update.
//
// The local frame has X along the radius of the hit the frame is aligned to,
// Y along the azimuthal direction and Z along the beam. The state vector is
// (Y, Z, SinPhi, DzDs, QPt) at a given X, where phi is the track direction
// relative to local X and QPt is charge over transverse momentum. The
// trajectory is parameterised in increasing X; SignCosPhi records which way
// the track actually crosses the frame.
//
// Every operation checks the SinPhi bound before touching the state, so a
// failed step leaves the parameters as they were.
package kalman
