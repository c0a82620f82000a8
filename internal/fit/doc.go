// Package fit provides the closed-form fits used to seed track candidates:
// an algebraic (Taubin) circle fit in the transverse plane and a straight-line
// fit of z against radius.
//
// Both fits are diagnostics-free pure functions. A degenerate point set (too
// few points, collinear points for the circle) produces non-finite results
// rather than an error; callers check Valid() and drop the candidate.
package fit
