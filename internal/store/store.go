// Package store provides the document store client. It is the one
// long-lived resource shared across requests; it is safe for concurrent
// use and carries no retry logic of its own. Raw failures surface as
// *RequestError for the retry layer to classify.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	maxResponseBytes  = 8 << 20  // 8 MiB
	maxErrorBodyBytes = 32 << 10 // 32 KiB
)

// RequestError is the declared raw-failure shape of the document store
// transport: an HTTP status, the store's own numeric error code when the
// body carries one, and a message.
type RequestError struct {
	Status  int
	Code    int
	Message string
}

func (e *RequestError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("store error %d (code %d): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("store error %d: %s", e.Status, e.Message)
}

// Client wraps the document store REST API.
type Client struct {
	url        string
	serviceKey string
	httpClient *http.Client
}

// Config holds store connection settings.
type Config struct {
	URL        string
	ServiceKey string
	Timeout    time.Duration
}

// NewClient creates a document store client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("store URL is required")
	}
	parsed, err := neturl.Parse(cfg.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("store URL must be a valid http(s) URL")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		url:        strings.TrimRight(cfg.URL, "/"),
		serviceKey: cfg.ServiceKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Get fetches a single document by id. A missing document surfaces as a
// *RequestError with Status 404.
func (c *Client) Get(ctx context.Context, collection, id string) ([]byte, error) {
	return c.request(ctx, http.MethodGet, collection+"/"+neturl.PathEscape(id), nil, "")
}

// Insert creates a document and returns the stored representation.
func (c *Client) Insert(ctx context.Context, collection string, doc any) ([]byte, error) {
	return c.request(ctx, http.MethodPost, collection, doc, "")
}

// Update replaces a document by id.
func (c *Client) Update(ctx context.Context, collection, id string, doc any) ([]byte, error) {
	return c.request(ctx, http.MethodPut, collection+"/"+neturl.PathEscape(id), doc, "")
}

// Delete removes a document by id.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	_, err := c.request(ctx, http.MethodDelete, collection+"/"+neturl.PathEscape(id), nil, "")
	return err
}

// List fetches documents matching the query string filters.
func (c *Client) List(ctx context.Context, collection string, query neturl.Values) ([]byte, error) {
	return c.request(ctx, http.MethodGet, collection, nil, query.Encode())
}

// request makes an HTTP request to the store REST API.
func (c *Client) request(ctx context.Context, method, path string, body any, query string) ([]byte, error) {
	url := fmt.Sprintf("%s/v1/%s", c.url, path)
	if query != "" {
		url += "?" + query
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, readError(resp)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(respBody) > maxResponseBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", maxResponseBytes)
	}

	return respBody, nil
}

// readError builds a *RequestError from a non-2xx response, pulling the
// store's code and message fields out of the JSON error body when present.
func readError(resp *http.Response) *RequestError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	reqErr := &RequestError{
		Status:  resp.StatusCode,
		Message: strings.TrimSpace(string(body)),
	}
	if code := gjson.GetBytes(body, "error.code"); code.Exists() {
		reqErr.Code = int(code.Int())
	} else if code := gjson.GetBytes(body, "code"); code.Type == gjson.Number {
		reqErr.Code = int(code.Int())
	}
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		reqErr.Message = msg.String()
	} else if msg := gjson.GetBytes(body, "message"); msg.Exists() {
		reqErr.Message = msg.String()
	}
	return reqErr
}
