package courier

import (
	"io"
	"net/url"

	"github.com/meigma/courier/core"
	"github.com/meigma/courier/internal/payload"
)

// Payload is an outbound request body.
// Re-exported from core package.
type Payload = core.Payload

// UnknownLength is the Length of a payload whose size is not known.
const UnknownLength = core.UnknownLength

// Multipart is a multipart body built from fields and files.
type Multipart = payload.Multipart

// Compression encodes a payload while it is written.
type Compression = payload.Compression

// Bytes returns a re-sendable payload over data.
func Bytes(contentType string, data []byte) Payload {
	return payload.NewBytes(contentType, data)
}

// String returns a re-sendable payload over s.
func String(contentType, s string) Payload {
	return payload.NewBytes(contentType, []byte(s))
}

// Form returns an application/x-www-form-urlencoded payload.
func Form(values url.Values) Payload {
	return payload.NewForm(values)
}

// Reader returns a single-use payload streamed from r.
// Pass UnknownLength when the size of r is not known.
func Reader(contentType string, r io.Reader, length int64) Payload {
	return payload.NewReader(contentType, r, length)
}

// File returns a payload for the file at path. An empty contentType is
// detected from the file.
func File(path, contentType string) (Payload, error) {
	return payload.NewFile(path, contentType)
}

// NewMultipart returns an empty multipart/form-data body.
func NewMultipart() *Multipart {
	return payload.NewMultipart()
}

// Compress returns p encoded with c. The result has UnknownLength.
func Compress(p Payload, c Compression) Payload {
	return payload.NewCompressed(p, c)
}

// Chunked returns p with its writes split into pieces of at most size bytes.
func Chunked(p Payload, size int) Payload {
	return payload.NewChunked(p, size)
}
