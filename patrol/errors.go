package patrol

import "errors"

// ErrInvalidInput is returned when request input fails validation.
var ErrInvalidInput = errors.New("patrol: invalid input")

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("patrol: not found")

// ErrDuplicateSource is returned when a source with the same normalized URL
// already exists.
var ErrDuplicateSource = errors.New("patrol: source with this URL already exists")

// ErrQuotaExceeded is returned when a resource limit is reached.
var ErrQuotaExceeded = errors.New("patrol: quota exceeded")
