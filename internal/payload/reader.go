package payload

import (
	"io"
	"sync/atomic"

	"github.com/meigma/courier/core"
)

var _ core.Payload = (*Reader)(nil)

// Reader streams a payload from an io.Reader. The stream can only be written
// once; a second WriteTo returns core.ErrPayloadConsumed.
type Reader struct {
	contentType string
	r           io.Reader
	length      int64
	chunkSize   int
	consumed    atomic.Bool
}

// NewReader creates a single-use streaming payload. Pass core.UnknownLength
// when the size of r is not known.
func NewReader(contentType string, r io.Reader, length int64) *Reader {
	if contentType == "" {
		contentType = OctetStream
	}
	if length < 0 {
		length = core.UnknownLength
	}
	return &Reader{
		contentType: contentType,
		r:           r,
		length:      length,
		chunkSize:   DefaultChunkSize,
	}
}

func (r *Reader) ContentType() string { return r.contentType }

func (r *Reader) Length() int64 { return r.length }

// Replayable reports false: the stream is consumed by the first WriteTo.
func (r *Reader) Replayable() bool { return false }

func (r *Reader) WriteTo(w io.Writer) (int64, error) {
	if !r.consumed.CompareAndSwap(false, true) {
		return 0, core.ErrPayloadConsumed
	}
	if closer, ok := r.r.(io.Closer); ok {
		defer closer.Close()
	}
	return copyChunks(w, r.r, r.chunkSize)
}
