package store

import "errors"

// ErrNotFound is returned when a write targets a record that does not exist.
// Reads report a missing record as a nil result instead.
var ErrNotFound = errors.New("not found")
