package courier

import "github.com/meigma/courier/core"

// Sentinel errors for common failure conditions.
// Re-exported from core package.
var (
	// ErrInvalidRequest indicates the request method or URL is malformed.
	ErrInvalidRequest = core.ErrInvalidRequest

	// ErrUnexpectedStatus indicates the server answered with a non-2xx status.
	ErrUnexpectedStatus = core.ErrUnexpectedStatus

	// ErrPayloadConsumed indicates a single-use payload was written twice.
	ErrPayloadConsumed = core.ErrPayloadConsumed

	// ErrDigestUnsupported indicates a payload cannot compute its own digest.
	ErrDigestUnsupported = core.ErrDigestUnsupported
)

// StatusError reports a response with an unexpected status code.
// Re-exported from core package.
type StatusError = core.StatusError
