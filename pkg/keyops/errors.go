package keyops

import "errors"

// Common errors returned while preparing and dispatching key operations.
// Backend failures are not represented here: whatever the backend client
// returns is propagated to the caller verbatim.
var (
	// ErrConflictingInput is returned when both the text form and the
	// byte form of the payload are supplied.
	ErrConflictingInput = errors.New("conflicting input: both text value and byte value supplied")

	// ErrMissingInput is returned when neither payload form is supplied.
	ErrMissingInput = errors.New("missing input: a text value or byte value is required")

	// ErrUnsupportedOperation is returned when the symbolic operation name
	// does not resolve to encrypt, decrypt, wrap, or unwrap.
	ErrUnsupportedOperation = errors.New("unsupported key operation")

	// ErrInvalidEncoding is returned when a text payload for decrypt or
	// unwrap is not valid standard base64.
	ErrInvalidEncoding = errors.New("invalid base64 encoding")

	// ErrMissingTarget is returned when the request names neither a vault
	// nor a dedicated HSM container.
	ErrMissingTarget = errors.New("missing target: a vault or HSM name is required")

	// ErrBackendNotConfigured is returned when the request targets a
	// backend the invoker was not configured with.
	ErrBackendNotConfigured = errors.New("target backend not configured")
)
