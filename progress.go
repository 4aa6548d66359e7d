package courier

import (
	"io"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/courier/core"
	"github.com/meigma/courier/internal/payload"
	"github.com/meigma/courier/internal/progress"
)

// ProgressEvent represents a progress update during an upload or download.
// Re-exported from core package.
type ProgressEvent = core.ProgressEvent

// ProgressCallback receives progress updates.
// Re-exported from core package.
type ProgressCallback = core.ProgressCallback

// ProgressFunc adapts a function to a ProgressCallback.
// Re-exported from core package.
type ProgressFunc = core.ProgressFunc

// WithProgress returns p decorated so that cb is told about every chunk p
// writes. When cb is absent (nil, or a nil ProgressFunc) p is returned as is.
//
// The decorator reports the same ContentType and Length as p. Its byte counter
// is local to each WriteTo call, so writing the payload again (for example
// when the transport re-sends the request) starts over from zero.
func WithProgress(p Payload, cb ProgressCallback) Payload {
	if !core.HasCallback(cb) {
		return p
	}
	return &progressPayload{inner: p, callback: cb}
}

// progressPayload decorates a Payload with upload progress reporting.
type progressPayload struct {
	inner    Payload
	callback ProgressCallback
}

func (p *progressPayload) ContentType() string { return p.inner.ContentType() }

func (p *progressPayload) Length() int64 { return p.inner.Length() }

// WriteTo writes the inner payload through a fresh counting sink.
// Errors from the payload or sink are returned unchanged.
func (p *progressPayload) WriteTo(w io.Writer) (int64, error) {
	return p.inner.WriteTo(progress.NewWriter(w, p.inner.Length(), p.callback))
}

// ContentEncoding forwards the inner payload's encoding, if any.
func (p *progressPayload) ContentEncoding() string {
	return contentEncoding(p.inner)
}

// Digest forwards to the inner payload.
func (p *progressPayload) Digest() (digest.Digest, error) {
	if d, ok := p.inner.(payload.Digester); ok {
		return d.Digest()
	}
	return "", ErrDigestUnsupported
}

func (p *progressPayload) Replayable() bool { return payload.Replayable(p.inner) }

// Unwrap returns the decorated payload.
func (p *progressPayload) Unwrap() Payload {
	return p.inner
}

func contentEncoding(p Payload) string {
	if e, ok := p.(payload.Encoder); ok {
		return e.ContentEncoding()
	}
	return ""
}
