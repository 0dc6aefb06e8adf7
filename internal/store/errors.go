package store

import "errors"

// Sentinel errors returned by store queries. Services translate these into
// domain errors at their boundary.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)
