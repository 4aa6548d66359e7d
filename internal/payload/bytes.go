package payload

import (
	"io"
	"net/url"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/courier/core"
)

const (
	// OctetStream is used when no better media type is known.
	OctetStream = "application/octet-stream"
	// FormURLEncoded is the media type of Form payloads.
	FormURLEncoded = "application/x-www-form-urlencoded"
)

var (
	_ core.Payload = (*Bytes)(nil)
	_ Digester     = (*Bytes)(nil)
)

// Bytes is an in-memory payload. It can be written any number of times.
type Bytes struct {
	contentType string
	data        []byte
}

// NewBytes creates a payload over data. An empty contentType defaults to
// application/octet-stream.
func NewBytes(contentType string, data []byte) *Bytes {
	if contentType == "" {
		contentType = OctetStream
	}
	return &Bytes{contentType: contentType, data: data}
}

// NewForm creates a urlencoded payload from values.
func NewForm(values url.Values) *Bytes {
	return NewBytes(FormURLEncoded, []byte(values.Encode()))
}

func (b *Bytes) ContentType() string { return b.contentType }

func (b *Bytes) Length() int64 { return int64(len(b.data)) }

// WriteTo writes the whole buffer in a single call.
func (b *Bytes) WriteTo(w io.Writer) (int64, error) {
	if len(b.data) == 0 {
		return 0, nil
	}
	n, err := w.Write(b.data)
	return int64(n), err
}

// Digest returns the sha256 digest of the buffer.
func (b *Bytes) Digest() (digest.Digest, error) {
	return digest.FromBytes(b.data), nil
}
