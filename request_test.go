package courier

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_InvalidRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		builder *RequestBuilder
	}{
		{name: "empty method", builder: NewRequest("", "https://example.com")},
		{name: "bad method", builder: NewRequest("BAD METHOD", "https://example.com")},
		{name: "relative url", builder: Get("/path")},
		{name: "unparseable url", builder: Get("://nope")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.builder.Build(context.Background())
			require.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestBuild_QueryAndHeaders(t *testing.T) {
	t.Parallel()

	req, err := Get("https://example.com/items?a=1").
		AddQuery("a", "2").
		Query("b", "3").
		Header("X-Trace", "one").
		AddHeader("X-Trace", "two").
		Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "a=1&a=2&b=3", req.URL.RawQuery)
	assert.Equal(t, []string{"one", "two"}, req.Header.Values("X-Trace"))
	assert.Nil(t, req.Body)
}

func TestBuild_KnownLengthBody(t *testing.T) {
	t.Parallel()

	req, err := Post("https://example.com/upload", String("text/plain", "payload")).Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(7), req.ContentLength)
	assert.Equal(t, "text/plain", req.Header.Get("Content-Type"))

	data, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	require.NoError(t, req.Body.Close())

	// GetBody replays the payload from the start.
	again, err := req.GetBody()
	require.NoError(t, err)
	data, err = io.ReadAll(again)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestBuild_SingleUseBodyHasNoGetBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body Payload
	}{
		{name: "reader", body: Reader("text/plain", strings.NewReader("once"), 4)},
		{name: "multipart stream", body: NewMultipart().Stream("f", "f.txt", "", strings.NewReader("once"), 4)},
		{name: "compressed reader", body: Compress(Reader("", strings.NewReader("once"), -1), GzipCompression())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req, err := Post("https://example.com", tt.body).
				OnUploadProgress(ProgressFunc(func(ProgressEvent) {})).
				Build(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, req.Body)
			assert.Nil(t, req.GetBody)
			require.NoError(t, req.Body.Close())
		})
	}
}

func TestBuild_ExplicitContentTypeWins(t *testing.T) {
	t.Parallel()

	req, err := Put("https://example.com", String("text/plain", "x")).
		Header("Content-Type", "application/custom").
		Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "application/custom", req.Header.Get("Content-Type"))
}

func TestBuild_UnknownLengthBody(t *testing.T) {
	t.Parallel()

	req, err := Post("https://example.com", Reader("", strings.NewReader("abc"), UnknownLength)).
		Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(-1), req.ContentLength)
	assert.Equal(t, "application/octet-stream", req.Header.Get("Content-Type"))
}

func TestBuild_EmptyBody(t *testing.T) {
	t.Parallel()

	req, err := Post("https://example.com", Bytes("text/plain", nil)).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.NoBody, req.Body)
	assert.Zero(t, req.ContentLength)
}

func TestBuild_CompressedBody(t *testing.T) {
	t.Parallel()

	req, err := Post("https://example.com", Compress(String("text/plain", "zip me"), ZstdCompression())).
		Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "zstd", req.Header.Get("Content-Encoding"))
	assert.Equal(t, int64(-1), req.ContentLength)
	require.NoError(t, req.Body.Close())
}

func TestBuild_ContentDigest(t *testing.T) {
	t.Parallel()

	req, err := Post("https://example.com", String("text/plain", "x")).
		ContentDigest(true).
		OnUploadProgress(ProgressFunc(func(ProgressEvent) {})).
		Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sha-256=:LXEWQrcmsEQBYnyp+6wy9chTD7GQPMTbAiWHF5IaSIE=:", req.Header.Get("Content-Digest"))

	_, err = Post("https://example.com", Reader("", strings.NewReader("x"), 1)).
		ContentDigest(true).
		Build(context.Background())
	require.ErrorIs(t, err, ErrDigestUnsupported)
}

func TestBuildBody(t *testing.T) {
	t.Parallel()

	body := String("text/plain", "abc")

	assert.Nil(t, Get("https://example.com").BuildBody())
	assert.Same(t, body, Post("https://example.com", body).BuildBody())

	wrapped := Post("https://example.com", body).
		OnUploadProgress(ProgressFunc(func(ProgressEvent) {})).
		BuildBody()
	assert.NotSame(t, body, wrapped)
	assert.IsType(t, &progressPayload{}, wrapped)

	// Clearing the callback restores the raw payload.
	cleared := Post("https://example.com", body).
		OnUploadProgress(ProgressFunc(func(ProgressEvent) {})).
		OnUploadProgress(nil).
		BuildBody()
	assert.Same(t, body, cleared)
}

func TestPipeBody_CloseBeforeReadSkipsWrite(t *testing.T) {
	t.Parallel()

	p := &countingPayload{}
	body := newPipeBody(p)
	require.NoError(t, body.Close())

	_, err := body.Read(make([]byte, 1))
	require.Error(t, err)
	assert.Zero(t, p.calls)

	select {
	case <-body.done:
	default:
		t.Fatal("closed body should report its writer as finished")
	}
}

func TestUploadTracker_WaitsForWriter(t *testing.T) {
	t.Parallel()

	uploads := &uploadTracker{}
	body := uploads.track(newPipeBody(&countingPayload{}))

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
	require.NoError(t, uploads.wait(context.Background()))

	var nilTracker *uploadTracker
	assert.NotNil(t, nilTracker.track(newPipeBody(&countingPayload{})))
	require.NoError(t, nilTracker.wait(context.Background()))
}

func TestUploadTracker_WaitHonoursContext(t *testing.T) {
	t.Parallel()

	uploads := &uploadTracker{}
	uploads.track(newPipeBody(&countingPayload{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, uploads.wait(ctx), context.Canceled)

	require.NoError(t, uploads.settle(context.Background(), true))
}

type countingPayload struct {
	calls int
}

func (*countingPayload) ContentType() string { return "" }

func (*countingPayload) Length() int64 { return 1 }

func (p *countingPayload) WriteTo(w io.Writer) (int64, error) {
	p.calls++
	n, err := w.Write([]byte{'x'})
	return int64(n), err
}
