// Package httpclient implements the todo repository against the REST surface
// served by another process.
package httpclient

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
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"gin-gonic-todos/internal/todo"
)

// StatusError is returned for any response outside the expected statuses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("todos api: %s", http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("todos api: %d %s", e.StatusCode, e.Message)
}

// Is lets callers match server-side not-found and validation failures with
// the domain sentinels. A 404 only matches ErrNotFound when the server named
// the todo as missing; a route miss means the client points at the wrong API.
func (e *StatusError) Is(target error) bool {
	switch target {
	case todo.ErrNotFound:
		return e.StatusCode == http.StatusNotFound && e.Message == todo.ErrNotFound.Error()
	case todo.ErrInvalid:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}

type envelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

var _ todo.Repository = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout bounds every request made by the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// New returns a client for the API rooted at baseURL, including any base
// path, e.g. "http://localhost:8080/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetAll(ctx context.Context) ([]todo.Todo, error) {
	var todos []todo.Todo
	if err := c.do(ctx, http.MethodGet, "/todos", nil, http.StatusOK, &todos); err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []todo.Todo{}
	}
	return todos, nil
}

// GetByID maps a missing todo to absence rather than an error.
func (c *Client) GetByID(ctx context.Context, id string) (todo.Todo, bool, error) {
	if id == "" {
		return todo.Todo{}, false, nil
	}
	var t todo.Todo
	err := c.do(ctx, http.MethodGet, todoPath(id), nil, http.StatusOK, &t)
	if errors.Is(err, todo.ErrNotFound) {
		return todo.Todo{}, false, nil
	}
	if err != nil {
		return todo.Todo{}, false, err
	}
	return t, true, nil
}

func (c *Client) Create(ctx context.Context, title string) (todo.Todo, error) {
	var t todo.Todo
	body := struct {
		Title string `json:"title"`
	}{Title: title}
	if err := c.do(ctx, http.MethodPost, "/todos", body, http.StatusCreated, &t); err != nil {
		return todo.Todo{}, err
	}
	return t, nil
}

func (c *Client) Update(ctx context.Context, id string, patch todo.Patch) (todo.Todo, error) {
	if id == "" {
		return todo.Todo{}, todo.ErrNotFound
	}
	var t todo.Todo
	if err := c.do(ctx, http.MethodPut, todoPath(id), patch, http.StatusOK, &t); err != nil {
		return todo.Todo{}, err
	}
	return t, nil
}

// Delete expects 204 whether or not the todo existed.
func (c *Client) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return c.do(ctx, http.MethodDelete, todoPath(id), nil, http.StatusNoContent, nil)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, nil)
}

func todoPath(id string) string {
	return "/todos/" + url.PathEscape(id)
}

func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	se := &StatusError{StatusCode: resp.StatusCode}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var env envelope
	if err := json.Unmarshal(b, &env); err == nil && env.Error.Message != "" {
		se.Message = env.Error.Message
	} else {
		se.Message = strings.TrimSpace(string(b))
	}
	return se
}
