// internal/transport/client.go
// Package transport is the HTTP layer between foundrychat and the Foundry Local
// service. Every call returns a Result so callers never see raw transport errors.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mwiater/foundrychat/internal/appconfig"
	"github.com/mwiater/foundrychat/internal/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// BaseURLResolver supplies the service root URL. It is consulted on every
// request and is expected to cache its answer.
type BaseURLResolver interface {
	BaseURL(ctx context.Context) string
}

// StaticBaseURL is a resolver that always returns the same URL.
type StaticBaseURL string

// BaseURL implements BaseURLResolver.
func (s StaticBaseURL) BaseURL(context.Context) string { return string(s) }

// Client issues JSON requests against the discovered service endpoint.
type Client struct {
	http     *http.Client
	stream   *http.Client
	resolver BaseURLResolver
	timeout  time.Duration
}

// New builds a Client with the configured request timeout. Streaming requests
// bound only the wait for response headers so long downloads are not cut off.
func New(cfg *appconfig.Config, resolver BaseURLResolver) *Client {
	timeout := cfg.RequestTimeout()
	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: instrumented(&http.Transport{ForceAttemptHTTP2: false}),
		},
		stream: &http.Client{
			Transport: instrumented(&http.Transport{ForceAttemptHTTP2: false, ResponseHeaderTimeout: timeout}),
		},
		resolver: resolver,
		timeout:  timeout,
	}
}

// NewWithHTTPClient wraps an existing http.Client for both plain and streaming calls.
func NewWithHTTPClient(hc *http.Client, resolver BaseURLResolver) *Client {
	return &Client{http: hc, stream: hc, resolver: resolver, timeout: hc.Timeout}
}

func instrumented(base http.RoundTripper) http.RoundTripper {
	return otelhttp.NewTransport(base,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
		}),
	)
}

// BaseURL returns the resolved service root without a trailing slash.
func (c *Client) BaseURL(ctx context.Context) string {
	return strings.TrimRight(c.resolver.BaseURL(ctx), "/")
}

func (c *Client) endpoint(ctx context.Context, path string) string {
	return c.BaseURL(ctx) + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) host(ctx context.Context) string {
	u, err := url.Parse(c.BaseURL(ctx))
	if err != nil || u.Host == "" {
		return c.BaseURL(ctx)
	}
	return u.Host
}

// Get issues a GET and decodes the JSON response into T.
func Get[T any](ctx context.Context, c *Client, path string) Result[T] {
	body, info := c.do(ctx, http.MethodGet, path, nil)
	if info != nil {
		return Fail[T](info)
	}
	return decode[T](path, body)
}

// Post marshals payload, issues a POST, and decodes the JSON response into TResp.
func Post[TReq, TResp any](ctx context.Context, c *Client, path string, payload TReq) Result[TResp] {
	data, err := json.Marshal(payload)
	if err != nil {
		return Fail[TResp](NewError(KindUnexpected, "Unexpected error", err.Error()))
	}
	body, info := c.do(ctx, http.MethodPost, path, data)
	if info != nil {
		return Fail[TResp](info)
	}
	return decode[TResp](path, body)
}

// Delete issues a DELETE. The response body is ignored on success.
func (c *Client) Delete(ctx context.Context, path string) Result[bool] {
	if _, info := c.do(ctx, http.MethodDelete, path, nil); info != nil {
		return Fail[bool](info)
	}
	return Ok(true)
}

// OpenStream issues a request and returns the open response once a successful
// status arrives. The caller must close the body. Failed statuses are read and
// classified before returning.
func (c *Client) OpenStream(ctx context.Context, method, path string, payload any) (*http.Response, *ErrorInfo) {
	var data []byte
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return nil, NewError(KindUnexpected, "Unexpected error", err.Error())
		}
	}
	req, info := c.newRequest(ctx, method, path, data)
	if info != nil {
		return nil, info
	}
	req.Header.Set("Accept", "text/event-stream, application/json")

	resp, err := c.stream.Do(req)
	if err != nil {
		logging.LogEvent("%s %s - NETWORK ERROR: %v", method, path, err)
		return nil, networkError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		logging.LogRequest(logging.DirServiceToClient, c.host(ctx), "", path, raw)
		return nil, Classify(resp.StatusCode, string(raw))
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, data []byte) (*http.Request, *ErrorInfo) {
	var reader io.Reader
	if data != nil {
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(ctx, path), reader)
	if err != nil {
		return nil, NewError(KindUnexpected, "Unexpected error", err.Error())
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	logging.LogRequest(logging.DirClientToService, c.host(ctx), "", method+" "+path, data)
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, data []byte) ([]byte, *ErrorInfo) {
	req, info := c.newRequest(ctx, method, path, data)
	if info != nil {
		return nil, info
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logging.LogEvent("%s %s - NETWORK ERROR: %v", method, path, err)
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, networkError(err)
	}
	logging.LogRequest(logging.DirServiceToClient, c.host(ctx), "", fmt.Sprintf("%s %s %d", method, path, resp.StatusCode), body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, Classify(resp.StatusCode, string(body))
	}
	return body, nil
}

func decode[T any](path string, body []byte) Result[T] {
	var out *T
	if err := json.Unmarshal(body, &out); err != nil {
		return Fail[T](NewError(KindParse, "Failed to parse response", err.Error()))
	}
	if out == nil {
		return Fail[T](NewError(KindParse, "Response deserialization returned null", "Endpoint: "+path))
	}
	return Ok(*out)
}

func networkError(err error) *ErrorInfo {
	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr), errors.As(err, &urlErr):
		return NewError(KindNetwork, "Network error", err.Error())
	default:
		return NewError(KindUnexpected, "Unexpected error", err.Error())
	}
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }
