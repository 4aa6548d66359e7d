package payload

import (
	"io"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/courier/core"
)

var _ core.Payload = (*Chunked)(nil)

// Chunked splits every write of the inner payload into pieces of at most
// size bytes. It bounds the distance between two progress events for
// payloads that write large buffers in one call.
type Chunked struct {
	inner core.Payload
	size  int
}

// NewChunked wraps p. A non-positive size uses DefaultChunkSize.
func NewChunked(p core.Payload, size int) *Chunked {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &Chunked{inner: p, size: size}
}

func (c *Chunked) ContentType() string { return c.inner.ContentType() }

func (c *Chunked) Length() int64 { return c.inner.Length() }

func (c *Chunked) WriteTo(w io.Writer) (int64, error) {
	return c.inner.WriteTo(&splitWriter{w: w, size: c.size})
}

// ContentEncoding forwards the inner payload's encoding, if any.
func (c *Chunked) ContentEncoding() string {
	if e, ok := c.inner.(Encoder); ok {
		return e.ContentEncoding()
	}
	return ""
}

func (c *Chunked) Replayable() bool { return Replayable(c.inner) }

// Digest forwards to the inner payload; splitting does not change content.
func (c *Chunked) Digest() (digest.Digest, error) {
	if d, ok := c.inner.(Digester); ok {
		return d.Digest()
	}
	return "", core.ErrDigestUnsupported
}

type splitWriter struct {
	w    io.Writer
	size int
}

func (s *splitWriter) Write(p []byte) (int, error) {
	var written int
	for len(p) > 0 {
		chunk := p
		if len(chunk) > s.size {
			chunk = chunk[:s.size]
		}
		n, err := s.w.Write(chunk)
		written += n
		if err != nil {
			return written, err
		}
		if n < len(chunk) {
			return written, io.ErrShortWrite
		}
		p = p[n:]
	}
	return written, nil
}
