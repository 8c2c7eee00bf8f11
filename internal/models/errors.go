package models

import "errors"

// ErrNotFound is returned by store operations when the target record does
// not exist. Merge execution treats it as already-satisfied on deletes.
var ErrNotFound = errors.New("not found")

// ErrInvalidThreshold is returned when a similarity threshold falls outside
// [0,1]. Thresholds are never clamped silently.
var ErrInvalidThreshold = errors.New("similarity threshold must be between 0 and 1")
