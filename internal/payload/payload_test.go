package payload

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/courier/core"
)

// chunkRecorder records the size of every Write it receives.
type chunkRecorder struct {
	bytes.Buffer
	sizes []int
}

func (c *chunkRecorder) Write(p []byte) (int, error) {
	c.sizes = append(c.sizes, len(p))
	return c.Buffer.Write(p)
}

func TestBytes(t *testing.T) {
	t.Parallel()

	p := NewBytes("", []byte("hello"))
	assert.Equal(t, OctetStream, p.ContentType())
	assert.Equal(t, int64(5), p.Length())

	// Written twice to prove re-sendability.
	for range 2 {
		var buf bytes.Buffer
		n, err := p.WriteTo(&buf)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)
		assert.Equal(t, "hello", buf.String())
	}

	d, err := p.Digest()
	require.NoError(t, err)
	assert.Equal(t, digest.FromString("hello"), d)
}

func TestBytes_EmptyWritesNothing(t *testing.T) {
	t.Parallel()

	rec := &chunkRecorder{}
	n, err := NewBytes("text/plain", nil).WriteTo(rec)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, rec.sizes)
}

func TestForm(t *testing.T) {
	t.Parallel()

	p := NewForm(url.Values{"b": {"2"}, "a": {"1 2"}})
	assert.Equal(t, FormURLEncoded, p.ContentType())

	var buf bytes.Buffer
	_, err := p.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "a=1+2&b=2", buf.String())
}

func TestReader_SingleUse(t *testing.T) {
	t.Parallel()

	p := NewReader("text/plain", strings.NewReader("stream"), -5)
	assert.Equal(t, core.UnknownLength, p.Length())

	var buf bytes.Buffer
	_, err := p.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, "stream", buf.String())

	_, err = p.WriteTo(&buf)
	require.ErrorIs(t, err, core.ErrPayloadConsumed)
}

func TestReader_WritesInChunks(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte{'a'}, DefaultChunkSize*2+10)
	p := NewReader("", bytes.NewReader(data), int64(len(data)))

	rec := &chunkRecorder{}
	n, err := p.WriteTo(rec)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, []int{DefaultChunkSize, DefaultChunkSize, 10}, rec.sizes)
}

func TestFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("file body"), 0o600))

	p, err := NewFile(path, "")
	require.NoError(t, err)
	assert.Equal(t, path, p.Path())
	assert.Equal(t, int64(9), p.Length())
	assert.True(t, strings.HasPrefix(p.ContentType(), "text/plain"))

	for range 2 {
		var buf bytes.Buffer
		_, err := p.WriteTo(&buf)
		require.NoError(t, err)
		assert.Equal(t, "file body", buf.String())
	}

	d, err := p.Digest()
	require.NoError(t, err)
	assert.Equal(t, digest.FromString("file body"), d)
}

func TestFile_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewFile(filepath.Join(t.TempDir(), "missing"), "")
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = NewFile(t.TempDir(), "")
	require.Error(t, err)
}

func TestDetectContentType_Sniffs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "blob")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n0000"), 0o600))
	assert.Equal(t, "image/png", DetectContentType(path))
}

func TestMultipart_LengthMatchesOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{7}, 1000), 0o600))

	m := NewMultipart().Field("name", `quote"d`)
	require.NoError(t, m.File("upload", path))

	var buf bytes.Buffer
	n, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, n, m.Length())

	mediaType, params, err := mime.ParseMediaType(m.ContentType())
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	form, err := multipart.NewReader(&buf, params["boundary"]).ReadForm(1 << 20)
	require.NoError(t, err)
	assert.Equal(t, []string{`quote"d`}, form.Value["name"])
	require.Len(t, form.File["upload"], 1)
	assert.Equal(t, "data.bin", form.File["upload"][0].Filename)
	assert.Equal(t, int64(1000), form.File["upload"][0].Size)
}

func TestMultipart_StreamUnknownLength(t *testing.T) {
	t.Parallel()

	m := NewMultipart().SetSubtype("mixed").
		Stream("blob", "b.txt", "text/plain", strings.NewReader("xyz"), -1)
	require.NoError(t, m.SetBoundary("fixedboundary"))

	assert.Equal(t, core.UnknownLength, m.Length())
	assert.Equal(t, "multipart/mixed; boundary=fixedboundary", m.ContentType())

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "xyz")

	_, err = m.WriteTo(io.Discard)
	require.ErrorIs(t, err, core.ErrPayloadConsumed)
}

func TestMultipart_ConcurrentStreamWritesUseOnce(t *testing.T) {
	t.Parallel()

	m := NewMultipart().Stream("blob", "b.txt", "", strings.NewReader("xyz"), 3)

	errs := make(chan error, 2)
	for range 2 {
		go func() {
			_, err := m.WriteTo(io.Discard)
			errs <- err
		}()
	}

	var consumed int
	for range 2 {
		if err := <-errs; err != nil {
			require.ErrorIs(t, err, core.ErrPayloadConsumed)
			consumed++
		}
	}
	assert.Equal(t, 1, consumed)
}

func TestReplayable(t *testing.T) {
	t.Parallel()

	stream := func() core.Payload { return NewReader("", strings.NewReader("x"), 1) }

	tests := []struct {
		name string
		p    core.Payload
		want bool
	}{
		{name: "bytes", p: NewBytes("", []byte("x")), want: true},
		{name: "reader", p: stream(), want: false},
		{name: "multipart fields", p: NewMultipart().Field("a", "b"), want: true},
		{name: "multipart stream", p: NewMultipart().Field("a", "b").Stream("s", "s", "", strings.NewReader("x"), 1), want: false},
		{name: "compressed bytes", p: NewCompressed(NewBytes("", []byte("x")), Gzip(gzip.BestSpeed)), want: true},
		{name: "compressed reader", p: NewCompressed(stream(), Gzip(gzip.BestSpeed)), want: false},
		{name: "chunked reader", p: NewChunked(stream(), 1), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Replayable(tt.p))
		})
	}
}

func TestMultipart_InvalidBoundary(t *testing.T) {
	t.Parallel()

	require.Error(t, NewMultipart().SetBoundary(""))
}

func TestCompressed_Gzip(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte("compress me "), 100)
	p := NewCompressed(NewBytes("text/plain", data), Gzip(gzip.BestSpeed))
	assert.Equal(t, core.UnknownLength, p.Length())
	assert.Equal(t, "text/plain", p.ContentType())
	assert.Equal(t, "gzip", p.ContentEncoding())

	var buf bytes.Buffer
	n, err := p.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	zr, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	out, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestCompressed_Zstd(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte("zstd "), 200)
	p := NewCompressed(NewBytes("", data), Zstd(zstd.SpeedFastest))
	assert.Equal(t, "zstd", p.ContentEncoding())

	var buf bytes.Buffer
	_, err := p.WriteTo(&buf)
	require.NoError(t, err)

	dec, err := zstd.NewReader(&buf)
	require.NoError(t, err)
	defer dec.Close()
	out, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestChunked(t *testing.T) {
	t.Parallel()

	inner := NewBytes("text/plain", []byte("0123456789"))
	p := NewChunked(inner, 4)
	assert.Equal(t, int64(10), p.Length())
	assert.Equal(t, "text/plain", p.ContentType())
	assert.Empty(t, p.ContentEncoding())

	rec := &chunkRecorder{}
	n, err := p.WriteTo(rec)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	assert.Equal(t, []int{4, 4, 2}, rec.sizes)
	assert.Equal(t, "0123456789", rec.String())

	d, err := p.Digest()
	require.NoError(t, err)
	assert.Equal(t, digest.FromString("0123456789"), d)

	_, err = NewChunked(NewReader("", strings.NewReader("x"), 1), 0).Digest()
	require.ErrorIs(t, err, core.ErrDigestUnsupported)
}
