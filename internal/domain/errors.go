package domain

import "errors"

// ErrValidation is returned when report input fails validation. No
// collaborator has been called when it is returned.
var ErrValidation = errors.New("validation error")

// ErrPersistence is returned when the report store rejects a create. It is the
// only failure that aborts ingestion, and its cause is never shown to clients.
var ErrPersistence = errors.New("failed to create report")

// ErrNotFound is returned by stores when a document does not exist.
var ErrNotFound = errors.New("not found")
