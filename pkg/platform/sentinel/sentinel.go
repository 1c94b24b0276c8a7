// Package sentinel holds the store-level facts services translate into
// domain errors. Stores return them, wrapped or bare; services match with
// errors.Is and never surface them to callers directly.
package sentinel

import "errors"

var (
	// ErrNotFound means the row or map entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a create collided with an existing id.
	ErrConflict = errors.New("conflict")
)
