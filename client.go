package courier

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/meigma/courier/core"
	"github.com/meigma/courier/internal/progress"
)

// maxErrorBody bounds how much of an error response is drained so the
// connection can be reused.
const maxErrorBody = 64 * 1024

// Client sends requests assembled by a RequestBuilder.
type Client struct {
	doer        Doer
	logger      *slog.Logger
	baseURL     *url.URL
	headers     http.Header
	checkStatus bool
}

// NewClient creates a new courier client.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		doer:    http.DefaultClient,
		logger:  slog.New(slog.DiscardHandler),
		headers: make(http.Header),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Do builds and sends the request. The caller must close the response body.
//
// Do returns only after every upload progress event has been delivered. When
// the request fails or the response is not 2xx, any part of the body the
// transport has not read yet is abandoned. A body the transport never started
// reading is never written. When the builder has a download callback, the response body
// reports progress as it is read.
func (c *Client) Do(ctx context.Context, b *RequestBuilder) (*http.Response, error) {
	uploads := &uploadTracker{}
	req, err := b.build(ctx, c.baseURL, c.headers, uploads)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("sending request",
		"method", req.Method,
		"url", req.URL.Redacted(),
		"content_length", req.ContentLength,
		"upload_progress", core.HasCallback(b.upload))

	start := time.Now()
	resp, err := c.doer.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", req.Method, "url", req.URL.Redacted(), "error", err)
		//nolint:errcheck // the transport error takes precedence
		uploads.settle(ctx, true)
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
	}

	c.logger.Debug("received response",
		"method", req.Method,
		"url", req.URL.Redacted(),
		"status", resp.StatusCode,
		"content_length", resp.ContentLength,
		"elapsed", time.Since(start))

	if err := uploads.settle(ctx, !successful(resp.StatusCode)); err != nil {
		drainAndClose(resp.Body)
		return nil, fmt.Errorf("%s %s: upload: %w", req.Method, req.URL.Redacted(), err)
	}

	if c.checkStatus && !successful(resp.StatusCode) {
		drainAndClose(resp.Body)
		return nil, newStatusError(req, resp)
	}

	if b.download != nil && resp.Body != nil {
		resp.Body = progress.NewReader(resp.Body, resp.ContentLength, b.download)
	}
	return resp, nil
}

// Bytes sends the request and returns the full response body.
// Non-2xx responses are always reported as a *StatusError.
func (c *Client) Bytes(ctx context.Context, b *RequestBuilder) ([]byte, error) {
	resp, err := c.Do(ctx, b)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !successful(resp.StatusCode) {
		drainAndClose(resp.Body)
		return nil, newStatusError(resp.Request, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

func successful(code int) bool {
	return code >= 200 && code < 300
}

func newStatusError(req *http.Request, resp *http.Response) *StatusError {
	e := &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}
	if req != nil {
		e.Method = req.Method
		e.URL = req.URL.Redacted()
	}
	return e
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	//nolint:errcheck // best effort drain for connection reuse
	io.CopyN(io.Discard, body, maxErrorBody)
	body.Close()
}
