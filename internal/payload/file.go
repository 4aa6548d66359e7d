package payload

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/courier/core"
)

var (
	_ core.Payload = (*File)(nil)
	_ Digester     = (*File)(nil)
)

// File is a payload backed by a file on disk. The file is reopened on every
// WriteTo, so the payload can be re-sent.
type File struct {
	path        string
	contentType string
	size        int64
	chunkSize   int
}

// NewFile stats path and creates a payload for it. An empty contentType is
// derived from the file extension, falling back to content sniffing.
func NewFile(path, contentType string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if contentType == "" {
		contentType = DetectContentType(path)
	}
	return &File{
		path:        path,
		contentType: contentType,
		size:        info.Size(),
		chunkSize:   DefaultChunkSize,
	}, nil
}

// DetectContentType guesses the media type of the file at path.
func DetectContentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return OctetStream
	}
	return mt.String()
}

// Path returns the file path.
func (f *File) Path() string { return f.path }

func (f *File) ContentType() string { return f.contentType }

func (f *File) Length() int64 { return f.size }

func (f *File) WriteTo(w io.Writer) (int64, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return 0, err
	}
	defer fh.Close()
	return copyChunks(w, io.LimitReader(fh, f.size), f.chunkSize)
}

// Digest hashes the file contents.
func (f *File) Digest() (digest.Digest, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return "", err
	}
	defer fh.Close()
	return digest.Canonical.FromReader(io.LimitReader(fh, f.size))
}
