// Package apiclient talks to the remote inventory API. Credentials are bound
// explicitly per client value and read once for every outgoing request.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxErrorBody = 512

// Credentials supplies the Authorization header for a request. An empty
// value means the request is sent without one.
type Credentials interface {
	Authorization() string
}

// Observer receives one callback per completed API call.
type Observer interface {
	ObserveAPICall(endpoint, outcome string, elapsed time.Duration)
}

// Request describes a single call against the remote API.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	// Endpoint labels the call for metrics. Defaults to Method and Path.
	Endpoint string
}

// Client issues JSON requests against the remote API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
	observer   Observer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// New constructs a Client for baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithCredentials returns a copy of the client bound to creds. The receiver
// is left untouched, so clients for different users never share state.
func (c *Client) WithCredentials(creds Credentials) *Client {
	clone := *c
	clone.creds = creds
	return &clone
}

// Do performs the request and returns the raw response body of a 2xx reply.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	authorization := ""
	if c.creds != nil {
		authorization = c.creds.Authorization()
	}

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = req.Method + " " + req.Path
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("apiclient: encode %s body: %w", endpoint, err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("apiclient: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		httpReq.Header.Set("Authorization", authorization)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.observe(endpoint, "transport_error", start)
		return nil, &TransportError{Method: req.Method, URL: target, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(endpoint, "transport_error", start)
		return nil, &TransportError{Method: req.Method, URL: target, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(endpoint, "status_"+strconv.Itoa(resp.StatusCode), start)
		snippet := strings.TrimSpace(string(data))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{Method: req.Method, URL: target, StatusCode: resp.StatusCode, Body: snippet}
	}
	c.observe(endpoint, "ok", start)
	return data, nil
}

func (c *Client) observe(endpoint, outcome string, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveAPICall(endpoint, outcome, time.Since(start))
}

// Get performs a GET and decodes the object response into T.
func Get[T any](ctx context.Context, c *Client, path string, query url.Values, endpoint string) (T, error) {
	data, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Endpoint: endpoint})
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](data)
}

// GetList performs a GET and decodes the array response into []T.
func GetList[T any](ctx context.Context, c *Client, path string, query url.Values, endpoint string) ([]T, error) {
	data, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Endpoint: endpoint})
	if err != nil {
		return nil, err
	}
	return DecodeList[T](data)
}

// Send performs a request with a JSON body and decodes the object response.
func Send[T any](ctx context.Context, c *Client, method, path string, body any, endpoint string) (T, error) {
	data, err := c.Do(ctx, Request{Method: method, Path: path, Body: body, Endpoint: endpoint})
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](data)
}
