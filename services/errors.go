package services

import "errors"

// Sentinel errors the handlers translate into HTTP statuses. Services wrap
// them with context via fmt.Errorf and %w.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrDuplicate  = errors.New("duplicate")
	ErrConflict   = errors.New("conflict")
)
