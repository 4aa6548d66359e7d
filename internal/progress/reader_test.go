package progress

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/courier/core"
)

// recorder collects every event it receives.
type recorder struct {
	events []core.ProgressEvent
}

func (r *recorder) OnProgress(event core.ProgressEvent) {
	r.events = append(r.events, event)
}

func TestReader_TracksProgress(t *testing.T) {
	t.Parallel()

	data := []byte("hello world")
	rec := &recorder{}
	pr := NewReader(bytes.NewReader(data), int64(len(data)), rec)

	buf := make([]byte, 5)
	n, err := pr.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.Len(t, rec.events, 1)
	assert.Equal(t, core.ProgressEvent{BytesWritten: 5, TotalBytes: 11}, rec.events[0])

	// Read remaining
	_, err = io.ReadAll(pr)
	require.NoError(t, err)
	last := rec.events[len(rec.events)-1]
	assert.Equal(t, int64(11), last.BytesWritten)
	assert.True(t, last.Done())
	assert.Equal(t, int64(11), pr.BytesRead())
}

func TestReader_NilCallback(t *testing.T) {
	t.Parallel()

	data := []byte("hello")
	pr := NewReader(bytes.NewReader(data), int64(len(data)), nil)

	buf, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, data, buf)
}

func TestReader_NilProgressFunc(t *testing.T) {
	t.Parallel()

	var fn core.ProgressFunc
	pr := NewReader(bytes.NewReader([]byte("abc")), 3, fn)

	buf, err := io.ReadAll(pr)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), buf)
}

func TestReader_CloseClosesUnderlying(t *testing.T) {
	t.Parallel()

	closed := false
	r := &mockCloser{
		Reader: bytes.NewReader([]byte("test")),
		onClose: func() error {
			closed = true
			return nil
		},
	}

	pr := NewReader(r, 4, nil)
	require.NoError(t, pr.Close())
	assert.True(t, closed)
}

func TestReader_CloseNonCloser(t *testing.T) {
	t.Parallel()

	// bytes.Reader doesn't implement io.Closer
	pr := NewReader(bytes.NewReader([]byte("test")), 4, nil)
	require.NoError(t, pr.Close())
}

type mockCloser struct {
	io.Reader
	onClose func() error
}

func (m *mockCloser) Close() error {
	return m.onClose()
}
