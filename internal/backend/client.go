// Package backend is the HTTP client for the document service: file listing,
// uploads, clearing, ingestion and chat.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	pathListFiles = "/api/list-files/"
	pathUpload    = "/api/upload/"
	pathClear     = "/api/clear-documents/"
	pathIngest    = "/api/ingest-documents/"
	pathChat      = "/api/chat/"
	pathIndexed   = "/api/indexed-documents/"
)

// FileInfo is one entry of the backend's file listing.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// StatusError reports a non-2xx response. The response body is never inspected.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: server returned %d", e.Op, e.StatusCode)
}

// Client talks to the backend over HTTP. Every call is bounded by the
// configured timeout in addition to the caller's context.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request. Zero or negative disables the per-request bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient replaces the underlying *http.Client (tests use the httptest client).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    30 * time.Second,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the backend origin this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out any) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: backend not reachable at %s: %w", op, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{Op: op, StatusCode: resp.StatusCode}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

// ListFiles returns the files the backend currently holds.
func (c *Client) ListFiles(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo
	if err := c.do(ctx, "list files", http.MethodGet, pathListFiles, "", nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// Upload sends one file as the multipart form field "file".
func (c *Client) Upload(ctx context.Context, name string, content io.Reader) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("upload %s: creating form file: %w", name, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("upload %s: reading content: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("upload %s: closing form: %w", name, err)
	}
	return c.do(ctx, "upload "+name, http.MethodPost, pathUpload, mw.FormDataContentType(), &buf, nil)
}

// ClearDocuments asks the backend to drop its ingested document collection.
func (c *Client) ClearDocuments(ctx context.Context) error {
	return c.do(ctx, "clear documents", http.MethodPost, pathClear, "", nil, nil)
}

// IngestDocuments asks the backend to ingest every file it currently holds.
func (c *Client) IngestDocuments(ctx context.Context) error {
	return c.do(ctx, "ingest documents", http.MethodPost, pathIngest, "", nil, nil)
}

// IndexStats summarizes the backend's search index.
type IndexStats struct {
	Documents []struct {
		Name   string `json:"name"`
		Chunks int    `json:"chunks"`
	} `json:"documents"`
	Chunks int `json:"chunks"`
}

// IndexStats reports what the last ingest put into the index. Backends that
// only serve the core contract answer 404 here.
func (c *Client) IndexStats(ctx context.Context) (IndexStats, error) {
	var out IndexStats
	if err := c.do(ctx, "index stats", http.MethodGet, pathIndexed, "", nil, &out); err != nil {
		return IndexStats{}, err
	}
	return out, nil
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Chat sends one user turn and returns the backend's reply text.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	data, err := json.Marshal(chatRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("chat: marshalling request: %w", err)
	}
	var out chatResponse
	if err := c.do(ctx, "chat", http.MethodPost, pathChat, "application/json", bytes.NewReader(data), &out); err != nil {
		return "", err
	}
	return out.Response, nil
}
