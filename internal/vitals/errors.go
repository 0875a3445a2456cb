package vitals

import "errors"

// ErrStoreUnavailable marks a persistence timeout or connection failure.
// Callers may retry; the condition is never silently dropped.
var ErrStoreUnavailable = errors.New("store unavailable")
