package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Inference failures. Every one aborts the current query.
var (
	ErrUnknownVariable        = errors.New("unknown variable")
	ErrInvalidEvidence        = errors.New("invalid evidence")
	ErrIncompleteOrder        = errors.New("incomplete elimination order")
	ErrDegenerateDistribution = errors.New("degenerate distribution")
	ErrResourceExceeded       = errors.New("resource limit exceeded")
	ErrScopeMismatch          = errors.New("factor scope mismatch")
	ErrMalformedNetwork       = errors.New("malformed network")
)
