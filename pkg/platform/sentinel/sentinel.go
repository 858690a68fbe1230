// Package sentinel holds the storage-level facts stores report. Services
// translate them into domain errors; stores never build domain errors themselves.
package sentinel

import "errors"

var (
	// ErrNotFound means no record exists under the key.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a unique key or identifier is already taken.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyUsed means a single-use grant or share was consumed by another request.
	ErrAlreadyUsed = errors.New("already used")
	// ErrUnavailable means the backing store could not be reached.
	ErrUnavailable = errors.New("unavailable")
)
