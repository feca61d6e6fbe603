package models

import "errors"

// ErrResourceUnavailable is wrapped by loaders when a required file (vector index,
// passage table) is missing. The server must not start when it is returned.
var ErrResourceUnavailable = errors.New("resource unavailable")

// ValidationError reports a malformed client request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
