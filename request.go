package courier

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/courier/internal/payload"
)

// RequestBuilder assembles an *http.Request. Setters return the builder so
// calls can be chained; the first setter error is reported by Build.
//
// A RequestBuilder is not safe for concurrent use.
type RequestBuilder struct {
	method   string
	rawURL   string
	header   http.Header
	query    url.Values
	body     Payload
	upload   ProgressCallback
	download ProgressCallback
	digest   bool
}

// NewRequest starts a request with the given method and URL. The URL may be
// relative when the request is sent through a Client configured with
// WithBaseURL.
func NewRequest(method, rawURL string) *RequestBuilder {
	return &RequestBuilder{
		method: method,
		rawURL: rawURL,
		header: make(http.Header),
		query:  make(url.Values),
	}
}

// Get starts a GET request.
func Get(rawURL string) *RequestBuilder { return NewRequest(http.MethodGet, rawURL) }

// Head starts a HEAD request.
func Head(rawURL string) *RequestBuilder { return NewRequest(http.MethodHead, rawURL) }

// Delete starts a DELETE request.
func Delete(rawURL string) *RequestBuilder { return NewRequest(http.MethodDelete, rawURL) }

// Post starts a POST request carrying body.
func Post(rawURL string, body Payload) *RequestBuilder {
	return NewRequest(http.MethodPost, rawURL).Body(body)
}

// Put starts a PUT request carrying body.
func Put(rawURL string, body Payload) *RequestBuilder {
	return NewRequest(http.MethodPut, rawURL).Body(body)
}

// Patch starts a PATCH request carrying body.
func Patch(rawURL string, body Payload) *RequestBuilder {
	return NewRequest(http.MethodPatch, rawURL).Body(body)
}

// Method returns the request method.
func (b *RequestBuilder) Method() string { return b.method }

// URL returns the request URL as given, before query merging.
func (b *RequestBuilder) URL() string { return b.rawURL }

// Header sets a header, replacing existing values.
func (b *RequestBuilder) Header(key, value string) *RequestBuilder {
	b.header.Set(key, value)
	return b
}

// AddHeader appends a header value.
func (b *RequestBuilder) AddHeader(key, value string) *RequestBuilder {
	b.header.Add(key, value)
	return b
}

// Query sets a query parameter, replacing existing values.
func (b *RequestBuilder) Query(key, value string) *RequestBuilder {
	b.query.Set(key, value)
	return b
}

// AddQuery appends a query parameter value.
func (b *RequestBuilder) AddQuery(key, value string) *RequestBuilder {
	b.query.Add(key, value)
	return b
}

// Body sets the request payload. A nil payload sends no body.
func (b *RequestBuilder) Body(p Payload) *RequestBuilder {
	b.body = p
	return b
}

// OnUploadProgress registers cb to observe the payload as it is sent.
// Passing nil removes a previously registered callback.
func (b *RequestBuilder) OnUploadProgress(cb ProgressCallback) *RequestBuilder {
	b.upload = cb
	return b
}

// OnDownloadProgress registers cb to observe the response body as it is read.
// It only takes effect when the request is sent through a Client.
func (b *RequestBuilder) OnDownloadProgress(cb ProgressCallback) *RequestBuilder {
	b.download = cb
	return b
}

// ContentDigest controls whether a Content-Digest header (sha-256) is sent.
// Only payloads that can hash themselves without being consumed support it.
func (b *RequestBuilder) ContentDigest(enabled bool) *RequestBuilder {
	b.digest = enabled
	return b
}

// BuildBody returns the payload to hand to the transport: the registered body
// wrapped for upload progress when a callback is set, or the body unchanged.
// It returns nil when no body was set.
func (b *RequestBuilder) BuildBody() Payload {
	if b.body == nil {
		return nil
	}
	return WithProgress(b.body, b.upload)
}

// Build assembles the request.
func (b *RequestBuilder) Build(ctx context.Context) (*http.Request, error) {
	return b.build(ctx, nil, nil, nil)
}

// build resolves the URL against base and applies defaults beneath the
// builder's own headers. Every body handed to the transport is registered
// with uploads when it is non-nil.
func (b *RequestBuilder) build(ctx context.Context, base *url.URL, defaults http.Header, uploads *uploadTracker) (*http.Request, error) {
	if b.method == "" {
		return nil, fmt.Errorf("%w: empty method", ErrInvalidRequest)
	}

	u, err := url.Parse(b.rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: url %q is not absolute", ErrInvalidRequest, u.String())
	}
	if len(b.query) > 0 {
		q := u.Query()
		for key, values := range b.query {
			q[key] = append(q[key], values...)
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, b.method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	for key, values := range defaults {
		req.Header[key] = append([]string(nil), values...)
	}
	for key, values := range b.header {
		req.Header[key] = append([]string(nil), values...)
	}

	if err := b.attachBody(req, uploads); err != nil {
		return nil, err
	}
	return req, nil
}

// attachBody wires the payload into req.
func (b *RequestBuilder) attachBody(req *http.Request, uploads *uploadTracker) error {
	p := b.BuildBody()
	if p == nil {
		return nil
	}

	if ct := p.ContentType(); ct != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", ct)
	}
	if enc := contentEncoding(p); enc != "" {
		req.Header.Set("Content-Encoding", enc)
	}
	if b.digest {
		value, err := contentDigest(b.body)
		if err != nil {
			return fmt.Errorf("content digest: %w", err)
		}
		req.Header.Set("Content-Digest", value)
	}

	length := p.Length()
	if length == 0 {
		req.Body = http.NoBody
		req.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
		req.ContentLength = 0
		return nil
	}

	req.Body = uploads.track(newPipeBody(p))
	if payload.Replayable(p) {
		req.GetBody = func() (io.ReadCloser, error) { return uploads.track(newPipeBody(p)), nil }
	}
	if length > 0 {
		req.ContentLength = length
	} else {
		req.ContentLength = -1
	}
	return nil
}

// contentDigest formats the RFC 9530 Content-Digest value for p.
func contentDigest(p Payload) (string, error) {
	d, ok := p.(payload.Digester)
	if !ok {
		return "", ErrDigestUnsupported
	}
	dgst, err := d.Digest()
	if err != nil {
		return "", err
	}
	if dgst.Algorithm() != digest.SHA256 {
		return "", fmt.Errorf("unsupported digest algorithm %s", dgst.Algorithm())
	}
	raw, err := hex.DecodeString(dgst.Encoded())
	if err != nil {
		return "", err
	}
	return "sha-256=:" + base64.StdEncoding.EncodeToString(raw) + ":", nil
}

// pipeBody streams a Payload into the transport. The payload is written on a
// separate goroutine, started on the first Read, that ends when the payload
// finishes or the transport closes the body. done is closed once no more
// progress events can be emitted.
type pipeBody struct {
	p     Payload
	pr    *io.PipeReader
	pw    *io.PipeWriter
	start sync.Once
	done  chan struct{}
}

func newPipeBody(p Payload) *pipeBody {
	pr, pw := io.Pipe()
	return &pipeBody{p: p, pr: pr, pw: pw, done: make(chan struct{})}
}

func (b *pipeBody) Read(p []byte) (int, error) {
	b.start.Do(func() {
		go func() {
			defer close(b.done)
			_, err := b.p.WriteTo(b.pw)
			b.pw.CloseWithError(err)
		}()
	})
	return b.pr.Read(p)
}

func (b *pipeBody) Close() error {
	b.abortIfIdle()
	return b.pr.CloseWithError(errBodyClosed)
}

// abortIfIdle closes the body when its writer has not started, so a later
// Read fails instead of writing the payload. A running writer is left alone.
func (b *pipeBody) abortIfIdle() {
	b.start.Do(func() {
		b.pw.CloseWithError(errBodyClosed)
		b.pr.CloseWithError(errBodyClosed)
		close(b.done)
	})
}

var errBodyClosed = errors.New("courier: request body closed")

// uploadTracker collects the bodies created for one request so the caller
// can wait for their writers. A nil tracker records nothing.
type uploadTracker struct {
	mu     sync.Mutex
	bodies []*pipeBody
}

func (t *uploadTracker) track(b *pipeBody) *pipeBody {
	if t == nil {
		return b
	}
	t.mu.Lock()
	t.bodies = append(t.bodies, b)
	t.mu.Unlock()
	return b
}

// settle stops every body the transport never started reading, or every body
// when abandon is set, then waits for the remaining writers.
func (t *uploadTracker) settle(ctx context.Context, abandon bool) error {
	for _, b := range t.snapshot() {
		if abandon {
			b.Close()
		} else {
			b.abortIfIdle()
		}
	}
	return t.wait(ctx)
}

// wait blocks until every tracked writer has returned or ctx is done.
func (t *uploadTracker) wait(ctx context.Context) error {
	for _, b := range t.snapshot() {
		select {
		case <-b.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (t *uploadTracker) snapshot() []*pipeBody {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*pipeBody(nil), t.bodies...)
}
