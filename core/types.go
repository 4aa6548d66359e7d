// Package core provides the shared types and interfaces for courier.
//
// This package exists to break import cycles between the root courier package
// and internal implementation packages. The courier package re-exports all
// public types from this package, so external users should import courier
// directly, not courier/core.
package core

import "io"

// UnknownLength is reported by a Payload whose size is not known up front.
// Requests carrying such a payload are sent with chunked transfer encoding.
const UnknownLength int64 = -1

// Payload is an outbound request body.
//
// A Payload describes its media type and size and writes its bytes to a sink.
// WriteTo may be called more than once when a request is re-sent; every call
// must write the complete body from the beginning.
type Payload interface {
	// ContentType returns the media type of the body.
	ContentType() string

	// Length returns the size of the body in bytes, or UnknownLength.
	Length() int64

	// WriteTo writes the body to w and returns the number of bytes written.
	WriteTo(w io.Writer) (int64, error)
}

// ProgressEvent is a single upload or download progress notification.
type ProgressEvent struct {
	// BytesWritten is the cumulative number of bytes transferred so far.
	BytesWritten int64
	// TotalBytes is the expected size, or UnknownLength.
	TotalBytes int64
}

// Known reports whether the total size is known.
func (e ProgressEvent) Known() bool {
	return e.TotalBytes >= 0
}

// Done reports whether every expected byte has been transferred.
// It is always false when the total size is unknown.
func (e ProgressEvent) Done() bool {
	return e.Known() && e.BytesWritten >= e.TotalBytes
}

// Percent returns the completed fraction in the range [0, 100].
// It returns 0 when the total size is unknown.
func (e ProgressEvent) Percent() float64 {
	switch {
	case !e.Known():
		return 0
	case e.TotalBytes == 0 || e.BytesWritten >= e.TotalBytes:
		return 100
	default:
		return float64(e.BytesWritten) * 100 / float64(e.TotalBytes)
	}
}

// ProgressCallback receives progress notifications.
// OnProgress is called synchronously on the goroutine performing the I/O,
// so implementations should return quickly.
type ProgressCallback interface {
	OnProgress(event ProgressEvent)
}

// ProgressFunc adapts an ordinary function to a ProgressCallback.
type ProgressFunc func(event ProgressEvent)

// OnProgress calls f(event).
func (f ProgressFunc) OnProgress(event ProgressEvent) {
	f(event)
}

// HasCallback reports whether cb can receive events. Both a nil interface and
// a nil ProgressFunc count as absent.
func HasCallback(cb ProgressCallback) bool {
	if cb == nil {
		return false
	}
	if f, ok := cb.(ProgressFunc); ok && f == nil {
		return false
	}
	return true
}
