// Package fetch provides the bounded-timeout HTTP GET collaborator used by
// the catalog-style protocols and the CRS lookup.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Client wraps an http.Client with query-parameter and JSON helpers.
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// New constructs a Client. A zero timeout defaults to 10s.
func New(timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Get issues a GET with the given query parameters and headers, returning
// the body and status code.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, headers http.Header) ([]byte, int, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if params != nil {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("get %s: %w", u.String(), err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// GetJSON issues Get and decodes a JSON body into out, treating any
// non-200 status as an error.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, headers http.Header, out any) error {
	body, status, err := c.Get(ctx, rawURL, params, headers)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("get %s: unexpected status %d", rawURL, status)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}
