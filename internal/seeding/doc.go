// Package seeding turns chains of detector hits into track seeds.
//
// Each chain is seeded with a circle fit through its hits and then refined
// hit by hit with the kalman package: the local frame is rotated to the
// next hit's azimuth, the state transported to the hit's radius and a
// decoupled measurement update applied. Accepted chains become TrackRecord
// values; rejected chains are reported as *RejectError and never abort the
// batch.
package seeding
