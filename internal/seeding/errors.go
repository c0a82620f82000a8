package seeding

import (
	"errors"
	"fmt"
)

// Rejection kinds. A *RejectError always wraps exactly one of these.
var (
	// ErrMalformedChain: too few hits, or a hit the lookups cannot resolve.
	ErrMalformedChain = errors.New("malformed chain")
	// ErrDegenerateFit: the seed circle fit has no finite radius.
	ErrDegenerateFit = errors.New("degenerate fit")
	// ErrNumericalInstability: rotate, transport or filter failed.
	ErrNumericalInstability = errors.New("numerical instability")
	// ErrInvalidResult: a final derived quantity is not finite.
	ErrInvalidResult = errors.New("invalid result")
)

// RejectError describes why a chain produced no record.
type RejectError struct {
	Chain   int   // index of the chain in the input batch
	Kind    error // one of the Err* kinds above
	Step    int   // hit index in traversal order where fitting stopped, 0 before propagation
	Updates int   // filter updates applied before rejection
	Detail  string
	Err     error // underlying cause, may be nil
}

func (e *RejectError) Error() string {
	msg := fmt.Sprintf("chain %d: %v", e.Chain, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *RejectError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func reject(chain int, kind error, detail string, cause error) *RejectError {
	return &RejectError{Chain: chain, Kind: kind, Detail: detail, Err: cause}
}
