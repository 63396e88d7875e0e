package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into domain
// errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: unique constraint or duplicate row
// - ErrInvalidState: entity in wrong state for requested transition
//   (also the shape of a lost optimistic "UPDATE ... WHERE status = X")
// - ErrExpired: record past its validity window
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrExpired      = errors.New("expired")
	ErrUnavailable  = errors.New("unavailable")
)
