package service

import "errors"

// Error taxonomy for the messaging core. Services wrap these with %w so
// handlers can classify failures with errors.Is and map them to transport
// responses.
var (
	// ErrInvalidInput covers missing or empty identifiers, self-conversation
	// attempts, and empty or over-length message text. Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound means a referenced conversation no longer exists. Callers
	// should re-resolve the conversation before retrying.
	ErrNotFound = errors.New("not found")

	// ErrOperationFailed means a multi-step write partially failed and was
	// rolled back, or the store rejected a write.
	ErrOperationFailed = errors.New("operation failed")

	// ErrSubscriptionFailed means a live feed could not be established or an
	// established feed errored. The feed is terminal; reconnection is the
	// caller's decision.
	ErrSubscriptionFailed = errors.New("subscription failed")

	// ErrPermissionDenied means the caller is not a participant of the
	// conversation it tried to touch.
	ErrPermissionDenied = errors.New("permission denied")
)
