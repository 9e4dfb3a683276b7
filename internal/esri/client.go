package esri

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client fetches ArcGIS REST descriptors with a bounded per-request
// timeout.
type Client struct {
	http   *http.Client
	logger *zap.Logger
}

// NewClient constructs a Client. A zero timeout defaults to 10s.
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
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

// Directory fetches a service-directory listing (root or folder).
func (c *Client) Directory(ctx context.Context, endpoint string) (*Directory, error) {
	var dir Directory
	if err := c.getJSON(ctx, endpoint, &dir); err != nil {
		return nil, fmt.Errorf("esri directory %s: %w", endpoint, err)
	}
	return &dir, nil
}

// MapServer fetches a MapServer service descriptor.
func (c *Client) MapServer(ctx context.Context, endpoint string) (*MapService, error) {
	var svc MapService
	if err := c.getJSON(ctx, endpoint, &svc); err != nil {
		return nil, fmt.Errorf("esri mapserver %s: %w", endpoint, err)
	}
	return &svc, nil
}

// MapLayers fetches the detailed layer descriptors of a MapServer.
func (c *Client) MapLayers(ctx context.Context, endpoint string) ([]MapLayer, error) {
	var resp struct {
		Layers []MapLayer `json:"layers"`
	}
	layersURL := strings.TrimRight(endpoint, "/") + "/layers"
	if err := c.getJSON(ctx, layersURL, &resp); err != nil {
		return nil, fmt.Errorf("esri layers %s: %w", layersURL, err)
	}
	return resp.Layers, nil
}

// ImageServer fetches an ImageServer service descriptor.
func (c *Client) ImageServer(ctx context.Context, endpoint string) (*ImageService, error) {
	var svc ImageService
	if err := c.getJSON(ctx, endpoint, &svc); err != nil {
		return nil, fmt.Errorf("esri imageserver %s: %w", endpoint, err)
	}
	return &svc, nil
}

// getJSON issues a GET with f=json appended and decodes the response. A
// descriptor-level error object is surfaced as a Go error so callers never
// mistake a broken remote for an empty one.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("f", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	var probe struct {
		Error *ServiceError `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if probe.Error != nil {
		return fmt.Errorf("remote error %d: %s", probe.Error.Code, probe.Error.Message)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
