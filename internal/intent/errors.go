package intent

import "errors"

// Error kinds surfaced by the executor. Validation failures are never
// retried; callers map them to transport-level status codes.
var (
	ErrNotFound    = errors.New("not found")
	ErrBadRequest  = errors.New("bad request")
	ErrForbidden   = errors.New("forbidden")
	ErrUnsupported = errors.New("unsupported action")
)
