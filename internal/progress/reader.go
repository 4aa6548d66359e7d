// Package progress provides byte-counting wrappers that report transfer
// progress on both sides of an HTTP exchange.
package progress

import (
	"io"

	"github.com/meigma/courier/core"
)

// Reader wraps an io.Reader to track bytes read and report progress.
// It is used for response bodies.
type Reader struct {
	reader   io.Reader
	callback core.ProgressCallback
	total    int64
	read     int64
}

// NewReader creates a progress-tracking reader.
// The total parameter should be the expected size (core.UnknownLength if unknown).
// The callback is called after each Read that returns data.
func NewReader(r io.Reader, total int64, callback core.ProgressCallback) *Reader {
	if !core.HasCallback(callback) {
		callback = nil
	}
	return &Reader{
		reader:   r,
		callback: callback,
		total:    total,
	}
}

// Read implements io.Reader and reports progress after each read.
func (r *Reader) Read(p []byte) (n int, err error) {
	n, err = r.reader.Read(p)
	if n > 0 {
		r.read += int64(n)
		if r.callback != nil {
			r.callback.OnProgress(core.ProgressEvent{BytesWritten: r.read, TotalBytes: r.total})
		}
	}
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (r *Reader) BytesRead() int64 {
	return r.read
}

// Close closes the underlying reader if it implements io.Closer.
func (r *Reader) Close() error {
	if closer, ok := r.reader.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
