package payload

import (
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/courier/core"
)

var (
	_ core.Payload = (*Compressed)(nil)
	_ Encoder      = (*Compressed)(nil)
)

// Compression encodes a payload on the fly.
type Compression interface {
	// Encoding is the Content-Encoding token, e.g. "gzip".
	Encoding() string
	// NewWriter returns a writer that compresses into w.
	NewWriter(w io.Writer) (io.WriteCloser, error)
}

type gzipCompression struct {
	level int
}

// Gzip returns gzip compression at the given level.
// Use gzip.DefaultCompression for the library default.
func Gzip(level int) Compression {
	return gzipCompression{level: level}
}

func (gzipCompression) Encoding() string { return "gzip" }

func (g gzipCompression) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(w, g.level)
}

type zstdCompression struct {
	level zstd.EncoderLevel
}

// Zstd returns zstd compression at the given level.
func Zstd(level zstd.EncoderLevel) Compression {
	return zstdCompression{level: level}
}

func (zstdCompression) Encoding() string { return "zstd" }

func (z zstdCompression) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return zstd.NewWriter(w, zstd.WithEncoderLevel(z.level))
}

// Compressed wraps a payload and compresses it while writing. The compressed
// size is not known ahead of time, so Length is always core.UnknownLength.
type Compressed struct {
	inner core.Payload
	c     Compression
}

// NewCompressed wraps p with compression c.
func NewCompressed(p core.Payload, c Compression) *Compressed {
	return &Compressed{inner: p, c: c}
}

func (c *Compressed) ContentType() string { return c.inner.ContentType() }

func (c *Compressed) Length() int64 { return core.UnknownLength }

func (c *Compressed) ContentEncoding() string { return c.c.Encoding() }

func (c *Compressed) Replayable() bool { return Replayable(c.inner) }

func (c *Compressed) WriteTo(w io.Writer) (int64, error) {
	counter := &countingWriter{w: w}
	zw, err := c.c.NewWriter(counter)
	if err != nil {
		return 0, err
	}
	if _, err := c.inner.WriteTo(zw); err != nil {
		zw.Close()
		return counter.n, err
	}
	if err := zw.Close(); err != nil {
		return counter.n, err
	}
	return counter.n, nil
}
