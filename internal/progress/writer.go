package progress

import (
	"io"

	"github.com/meigma/courier/core"
)

// Writer is an instrumented sink. Every chunk is forwarded unchanged to the
// underlying writer; once the chunk is accepted the running total is bumped
// and the callback fires exactly once.
//
// After the first failed write the Writer is dead: the error is returned
// again for every later write and no further events are emitted.
type Writer struct {
	w        io.Writer
	callback core.ProgressCallback
	total    int64
	written  int64
	err      error
}

// NewWriter creates a progress-tracking writer that starts counting at zero.
// The total parameter should be the declared size (core.UnknownLength if unknown).
func NewWriter(w io.Writer, total int64, callback core.ProgressCallback) *Writer {
	if !core.HasCallback(callback) {
		callback = nil
	}
	return &Writer{
		w:        w,
		callback: callback,
		total:    total,
	}
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}

	n, err := w.w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		w.err = err
		return n, err
	}
	if n == 0 {
		return 0, nil
	}

	w.written += int64(n)
	if w.callback != nil {
		w.callback.OnProgress(core.ProgressEvent{BytesWritten: w.written, TotalBytes: w.total})
	}
	return n, nil
}

// Written returns the number of bytes accepted by the underlying writer.
func (w *Writer) Written() int64 {
	return w.written
}

// Err returns the error that stopped the writer, if any.
func (w *Writer) Err() error {
	return w.err
}

// Flush flushes the underlying writer when it supports flushing.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	switch f := w.w.(type) {
	case interface{ Flush() error }:
		return f.Flush()
	case interface{ Flush() }:
		f.Flush()
	}
	return nil
}

// Close closes the underlying writer if it implements io.Closer.
func (w *Writer) Close() error {
	if closer, ok := w.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
