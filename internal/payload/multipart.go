package payload

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/meigma/courier/core"
)

var _ core.Payload = (*Multipart)(nil)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// part is one section of a multipart body.
type part struct {
	header  textproto.MIMEHeader
	size    int64
	open    func() (io.Reader, error)
	oneShot bool
}

// Multipart is a multipart body assembled from fields and files.
// The boundary is fixed at construction so that Length is stable and every
// WriteTo produces identical bytes.
type Multipart struct {
	subtype   string
	boundary  string
	parts     []part
	chunkSize int
}

// NewMultipart creates an empty multipart/form-data body.
func NewMultipart() *Multipart {
	return &Multipart{
		subtype:   "form-data",
		boundary:  multipart.NewWriter(io.Discard).Boundary(),
		chunkSize: DefaultChunkSize,
	}
}

// SetSubtype changes the multipart subtype, e.g. "mixed" or "related".
func (m *Multipart) SetSubtype(subtype string) *Multipart {
	m.subtype = subtype
	return m
}

// SetBoundary overrides the generated boundary.
func (m *Multipart) SetBoundary(boundary string) error {
	if err := multipart.NewWriter(io.Discard).SetBoundary(boundary); err != nil {
		return err
	}
	m.boundary = boundary
	return nil
}

// Boundary returns the boundary separating parts.
func (m *Multipart) Boundary() string { return m.boundary }

// Field adds a plain form field.
func (m *Multipart) Field(name, value string) *Multipart {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`, quoteEscaper.Replace(name)))
	m.parts = append(m.parts, part{
		header: h,
		size:   int64(len(value)),
		open: func() (io.Reader, error) {
			return strings.NewReader(value), nil
		},
	})
	return m
}

// File adds the file at path under the given form field name.
func (m *Multipart) File(field, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	size := info.Size()
	m.parts = append(m.parts, part{
		header: fileHeader(field, filepath.Base(path), DetectContentType(path)),
		size:   size,
		open: func() (io.Reader, error) {
			fh, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			return &limitedFile{Reader: io.LimitReader(fh, size), f: fh}, nil
		},
	})
	return nil
}

// Stream adds a part read from r. A multipart body containing a stream can
// only be written once, and has unknown length unless size is known.
func (m *Multipart) Stream(field, filename, contentType string, r io.Reader, size int64) *Multipart {
	if contentType == "" {
		contentType = OctetStream
	}
	if size < 0 {
		size = core.UnknownLength
	}
	var used atomic.Bool
	m.parts = append(m.parts, part{
		header: fileHeader(field, filename, contentType),
		size:   size,
		open: func() (io.Reader, error) {
			if !used.CompareAndSwap(false, true) {
				return nil, core.ErrPayloadConsumed
			}
			return r, nil
		},
		oneShot: true,
	})
	return m
}

// Part adds a part with caller-supplied headers and an in-memory body.
func (m *Multipart) Part(header textproto.MIMEHeader, body []byte) *Multipart {
	m.parts = append(m.parts, part{
		header: header,
		size:   int64(len(body)),
		open: func() (io.Reader, error) {
			return bytes.NewReader(body), nil
		},
	})
	return m
}

func (m *Multipart) ContentType() string {
	return fmt.Sprintf("multipart/%s; boundary=%s", m.subtype, m.boundary)
}

// Length sums the framing and every part size. It is core.UnknownLength when
// any part size is unknown.
func (m *Multipart) Length() int64 {
	counter := &countingWriter{w: io.Discard}
	mw := m.newWriter(counter)
	var content int64
	for _, p := range m.parts {
		if p.size < 0 {
			return core.UnknownLength
		}
		if _, err := mw.CreatePart(p.header); err != nil {
			return core.UnknownLength
		}
		content += p.size
	}
	if err := mw.Close(); err != nil {
		return core.UnknownLength
	}
	return counter.n + content
}

// Replayable reports false once a Stream part has been added.
func (m *Multipart) Replayable() bool {
	for _, p := range m.parts {
		if p.oneShot {
			return false
		}
	}
	return true
}

func (m *Multipart) WriteTo(w io.Writer) (int64, error) {
	counter := &countingWriter{w: w}
	mw := m.newWriter(counter)
	for _, p := range m.parts {
		pw, err := mw.CreatePart(p.header)
		if err != nil {
			return counter.n, err
		}
		r, err := p.open()
		if err != nil {
			return counter.n, err
		}
		_, err = copyChunks(pw, r, m.chunkSize)
		if closer, ok := r.(io.Closer); ok {
			closer.Close()
		}
		if err != nil {
			return counter.n, err
		}
	}
	err := mw.Close()
	return counter.n, err
}

func (m *Multipart) newWriter(w io.Writer) *multipart.Writer {
	mw := multipart.NewWriter(w)
	//nolint:errcheck // boundary validated when set
	mw.SetBoundary(m.boundary)
	return mw
}

func fileHeader(field, filename, contentType string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)
	return h
}

// limitedFile reads at most the stat size and closes the file afterwards.
type limitedFile struct {
	io.Reader
	f *os.File
}

func (l *limitedFile) Close() error { return l.f.Close() }
