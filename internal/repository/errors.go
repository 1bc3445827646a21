// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// reservation service and the handlers to distinguish between different
// failure scenarios without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup by identity matches no row.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrStaleStatus is returned by conditional writes when the row no
// longer holds the status the caller read.  Another request changed it
// in between.
var ErrStaleStatus = errors.New("status changed concurrently")

// ErrDuplicate is returned when an insert violates a unique key, such
// as a second bill for the same reservation or a reused room number.
var ErrDuplicate = errors.New("duplicate entry")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned when a delete cannot be performed because of
// dependent records, e.g. deleting a room that still has active
// reservations.
var ErrConflict = errors.New("conflict")
