package courier

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// ClientOption configures a Client.
type ClientOption func(*Client) error

// WithBaseURL resolves relative request URLs against base.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) error {
		u, err := url.Parse(base)
		if err != nil {
			return fmt.Errorf("%w: base url: %v", ErrInvalidRequest, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: base url %q is not absolute", ErrInvalidRequest, base)
		}
		c.baseURL = u
		return nil
	}
}

// WithDefaultHeader sets a header sent with every request unless the request
// sets it itself.
func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) error {
		c.headers.Set(key, value)
		return nil
	}
}

// WithHTTPClient sets the transport used to send requests.
// By default, http.DefaultClient is used.
func WithHTTPClient(d Doer) ClientOption {
	return func(c *Client) error {
		if d == nil {
			return errors.New("http client is nil")
		}
		c.doer = d
		return nil
	}
}

// WithLogger sets a logger for the client. By default, logging is disabled.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithStatusCheck makes Do fail with a *StatusError for non-2xx responses.
func WithStatusCheck(enabled bool) ClientOption {
	return func(c *Client) error {
		c.checkStatus = enabled
		return nil
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) error {
		c.headers.Set("User-Agent", ua)
		return nil
	}
}

var _ Doer = (*http.Client)(nil)
