// Package payload implements the request bodies exposed by the courier package.
package payload

import (
	"io"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/courier/core"
)

// DefaultChunkSize is the write size used when a payload streams from a reader.
const DefaultChunkSize = 32 * 1024

// Digester is implemented by payloads that can hash their own content
// without consuming it.
type Digester interface {
	Digest() (digest.Digest, error)
}

// Encoder is implemented by payloads that apply a Content-Encoding.
type Encoder interface {
	ContentEncoding() string
}

// Replayer is implemented by payloads that know whether WriteTo can be called
// more than once.
type Replayer interface {
	Replayable() bool
}

// Replayable reports whether p can be written again. Payloads that do not
// implement Replayer are assumed to be replayable.
func Replayable(p core.Payload) bool {
	if r, ok := p.(Replayer); ok {
		return r.Replayable()
	}
	return true
}

// copyChunks copies src to dst in writes of at most size bytes.
// WriterTo and ReaderFrom shortcuts are hidden so that each chunk reaches dst
// as its own Write call.
func copyChunks(dst io.Writer, src io.Reader, size int) (int64, error) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	buf := make([]byte, size)
	return io.CopyBuffer(struct{ io.Writer }{dst}, struct{ io.Reader }{src}, buf)
}

// countingWriter counts bytes passed to the wrapped writer.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
