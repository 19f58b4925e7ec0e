// Package client talks to a procsup control server over HTTP.
package client

import (
	"bytes"
	stdcontext "context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Paintersrp/procsup/internal/api"
)

// DefaultAddr matches the server's default listen address.
const DefaultAddr = "127.0.0.1:7663"

// Error is the decoded error envelope returned by the server.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status=%d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap maps well-known error codes back onto api sentinels.
func (e *Error) Unwrap() error {
	switch e.Code {
	case "process_not_found":
		return api.ErrProcessNotFound
	case "invalid_request":
		return api.ErrInvalidRequest
	case "wait_timeout":
		return stdcontext.DeadlineExceeded
	}
	return nil
}

// Client issues control requests.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New builds a client for addr, which may be host:port or a full URL.
func New(addr string, opts ...Option) (*Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = DefaultAddr
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	base, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse server address: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("parse server address: missing host in %q", addr)
	}
	c := &Client{base: base, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Create spawns a process.
func (c *Client) Create(ctx stdcontext.Context, req api.CreateRequest) (*api.CreateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	var out api.CreateResponse
	if err := c.do(ctx, http.MethodPut, "/api/v1/cmd", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Wait blocks until the process exits. A positive timeout is enforced by the
// server.
func (c *Client) Wait(ctx stdcontext.Context, id uint64, timeout time.Duration) (*api.ExitReport, error) {
	return c.terminal(ctx, "/api/v1/wait/", id, timeout)
}

// Kill terminates the process and returns its exit report.
func (c *Client) Kill(ctx stdcontext.Context, id uint64, timeout time.Duration) (*api.ExitReport, error) {
	return c.terminal(ctx, "/api/v1/kill/", id, timeout)
}

func (c *Client) terminal(ctx stdcontext.Context, prefix string, id uint64, timeout time.Duration) (*api.ExitReport, error) {
	var query url.Values
	if timeout > 0 {
		query = url.Values{"timeout": []string{timeout.String()}}
	}
	var out api.ExitReport
	if err := c.do(ctx, http.MethodPost, prefix+strconv.FormatUint(id, 10), query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status fetches one process snapshot.
func (c *Client) Status(ctx stdcontext.Context, id uint64) (*api.ProcessStatus, error) {
	var out api.ProcessStatus
	if err := c.do(ctx, http.MethodGet, "/api/v1/processes/"+strconv.FormatUint(id, 10), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List fetches every process snapshot.
func (c *Client) List(ctx stdcontext.Context) (*api.ProcessList, error) {
	var out api.ProcessList
	if err := c.do(ctx, http.MethodGet, "/api/v1/processes", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx stdcontext.Context, method, path string, query url.Values, body []byte, out any) error {
	target := c.base.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var envelope struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Code == "" {
		return &Error{StatusCode: resp.StatusCode, Code: "http_error", Message: strings.TrimSpace(string(data))}
	}
	return &Error{StatusCode: resp.StatusCode, Code: envelope.Code, Message: envelope.Message}
}

// IsNotFound reports whether err is a process_not_found response.
func IsNotFound(err error) bool {
	return errors.Is(err, api.ErrProcessNotFound)
}
