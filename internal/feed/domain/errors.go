package domain

import "errors"

// Error kinds surfaced by feed operations. Transient network failures are
// retryable by user action; validation and permission failures are not.
var (
	// ErrNetwork transient store or transport failure
	ErrNetwork = errors.New("network error")
	// ErrValidation input rejected before any network call
	ErrValidation = errors.New("validation error")
	// ErrPermission caller is not allowed to act on this scope
	ErrPermission = errors.New("permission denied")
	// ErrStaleState optimistic write contradicted by server state
	ErrStaleState = errors.New("stale state")
)
