// Package client is a typed Go client for the shop and admin APIs. It carries
// the client-side rules of the storefront: slip checks before upload, coupon
// state, session restore, the admin console selection rule and optimistic
// content edits.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/joao-fontenele/courseshop/internal/httpx"
)

// ErrRequestFailed wraps transport and decoding failures. Callers show a
// generic message for it; *APIError carries the server's own text.
var ErrRequestFailed = errors.New("request failed, please try again")

// APIError is a {success:false} response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Message is the text to show a user for err.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	if errors.Is(err, ErrRequestFailed) {
		return ErrRequestFailed.Error()
	}
	return err.Error()
}

type envelope struct {
	Success    bool              `json:"success"`
	Data       json.RawMessage   `json:"data"`
	Message    string            `json:"message"`
	Error      string            `json:"error"`
	Pagination *httpx.Pagination `json:"pagination"`
}

// Result is the decoded envelope of a successful call.
type Result struct {
	Message    string
	Pagination *httpx.Pagination
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// SetToken sets the bearer token sent with every request. An empty token
// sends none.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// call sends a JSON request and decodes the envelope's data into out, which
// may be nil.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) (*Result, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, query, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) (*Result, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrRequestFailed, req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %s %s: status %d: %v", ErrRequestFailed, req.Method, req.URL.Path, resp.StatusCode, err)
	}

	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			return nil, fmt.Errorf("%w: %s %s: status %d", ErrRequestFailed, req.Method, req.URL.Path, resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("%w: decode %s %s: %v", ErrRequestFailed, req.Method, req.URL.Path, err)
		}
	}

	return &Result{Message: env.Message, Pagination: env.Pagination}, nil
}

// download fetches a non-JSON body such as a PDF receipt.
func (c *Client) download(ctx context.Context, path string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Del("Accept")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", ErrRequestFailed, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Error != "" {
			return nil, &APIError{Status: resp.StatusCode, Message: env.Error}
		}
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrRequestFailed, path, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
