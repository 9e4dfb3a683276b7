// Package memory provides an in-memory catalog for tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/geoharbor/mapharvest/internal/harvest"
	"github.com/geoharbor/mapharvest/internal/store"
)

type layerKey struct {
	name       string
	serviceURL string
}

type dateKey struct {
	date     string
	dateType int
}

// Catalog is a mutex-guarded harvest.Catalog backed by maps.
type Catalog struct {
	mu       sync.RWMutex
	services map[string]harvest.Service
	layers   map[layerKey]harvest.Layer
	keywords map[layerKey][]string
	srs      map[layerKey]map[int]struct{}
	srsRows  map[int]struct{}
	dates    map[layerKey]map[dateKey]struct{}
	wm       map[layerKey]harvest.LayerWM
}

// NewCatalog constructs an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		services: make(map[string]harvest.Service),
		layers:   make(map[layerKey]harvest.Layer),
		keywords: make(map[layerKey][]string),
		srs:      make(map[layerKey]map[int]struct{}),
		srsRows:  make(map[int]struct{}),
		dates:    make(map[layerKey]map[dateKey]struct{}),
		wm:       make(map[layerKey]harvest.LayerWM),
	}
}

// CreateService registers a service once per URL; duplicates are no-ops.
func (c *Catalog) CreateService(_ context.Context, svc harvest.Service) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.services[svc.URL]; exists {
		return false, nil
	}
	c.services[svc.URL] = svc
	return true, nil
}

// GetService fetches a registered service by URL.
func (c *Catalog) GetService(_ context.Context, url string) (harvest.Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	svc, ok := c.services[url]
	if !ok {
		return harvest.Service{}, store.ErrNotFound
	}
	return svc, nil
}

// GetOrCreateLayer looks up a layer by (name, serviceURL), creating it with
// defaults when missing.
func (c *Catalog) GetOrCreateLayer(_ context.Context, name, serviceURL string) (harvest.Layer, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := layerKey{name: name, serviceURL: serviceURL}
	if layer, ok := c.layers[key]; ok {
		return layer, false, nil
	}
	layer := harvest.Layer{
		Name:       name,
		ServiceURL: serviceURL,
		Active:     true,
		IsPublic:   true,
	}
	c.layers[key] = layer
	return layer, true, nil
}

// UpdateLayer persists the mutated fields of an existing layer.
func (c *Catalog) UpdateLayer(_ context.Context, layer harvest.Layer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := layerKey{name: layer.Name, serviceURL: layer.ServiceURL}
	if _, ok := c.layers[key]; !ok {
		return store.ErrNotFound
	}
	c.layers[key] = layer
	return nil
}

// AddKeyword associates a tag with a layer, ignoring duplicates.
func (c *Catalog) AddKeyword(_ context.Context, name, serviceURL, keyword string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := layerKey{name: name, serviceURL: serviceURL}
	for _, kw := range c.keywords[key] {
		if kw == keyword {
			return nil
		}
	}
	c.keywords[key] = append(c.keywords[key], keyword)
	return nil
}

// EnsureSRS lazily creates the SRS row and associates it with the layer.
func (c *Catalog) EnsureSRS(_ context.Context, name, serviceURL string, code int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.srsRows[code] = struct{}{}
	key := layerKey{name: name, serviceURL: serviceURL}
	if c.srs[key] == nil {
		c.srs[key] = make(map[int]struct{})
	}
	c.srs[key][code] = struct{}{}
	return nil
}

// AddLayerDate upserts one (layer, date, type) row.
func (c *Catalog) AddLayerDate(_ context.Context, name, serviceURL, date string, dateType int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := layerKey{name: name, serviceURL: serviceURL}
	if c.dates[key] == nil {
		c.dates[key] = make(map[dateKey]struct{})
	}
	c.dates[key][dateKey{date: date, dateType: dateType}] = struct{}{}
	return nil
}

// UpsertLayerWM stores the WorldMap side-table fields for a layer.
func (c *Catalog) UpsertLayerWM(_ context.Context, name, serviceURL string, wm harvest.LayerWM) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wm[layerKey{name: name, serviceURL: serviceURL}] = wm
	return nil
}

// Services returns all registered services sorted by URL.
func (c *Catalog) Services() []harvest.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]harvest.Service, 0, len(c.services))
	for _, svc := range c.services {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// Layers returns all layers sorted by (serviceURL, name).
func (c *Catalog) Layers() []harvest.Layer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]harvest.Layer, 0, len(c.layers))
	for _, layer := range c.layers {
		out = append(out, layer)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ServiceURL != out[j].ServiceURL {
			return out[i].ServiceURL < out[j].ServiceURL
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Layer fetches one layer by key.
func (c *Catalog) Layer(name, serviceURL string) (harvest.Layer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	layer, ok := c.layers[layerKey{name: name, serviceURL: serviceURL}]
	return layer, ok
}

// SetActive toggles a layer's update-suppression gate.
func (c *Catalog) SetActive(name, serviceURL string, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := layerKey{name: name, serviceURL: serviceURL}
	if layer, ok := c.layers[key]; ok {
		layer.Active = active
		c.layers[key] = layer
	}
}

// Keywords returns a layer's keyword associations in insertion order.
func (c *Catalog) Keywords(name, serviceURL string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.keywords[layerKey{name: name, serviceURL: serviceURL}]...)
}

// SRSCodes returns a layer's spatial-reference codes sorted ascending.
func (c *Catalog) SRSCodes(name, serviceURL string) []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set := c.srs[layerKey{name: name, serviceURL: serviceURL}]
	out := make([]int, 0, len(set))
	for code := range set {
		out = append(out, code)
	}
	sort.Ints(out)
	return out
}

// SRSRowCount reports how many distinct SRS rows exist.
func (c *Catalog) SRSRowCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.srsRows)
}

// DateRow is one (date, type) association returned by Dates.
type DateRow struct {
	Date string
	Type int
}

// Dates returns a layer's (date, type) rows sorted by date then type.
func (c *Catalog) Dates(name, serviceURL string) []DateRow {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set := c.dates[layerKey{name: name, serviceURL: serviceURL}]
	out := make([]DateRow, 0, len(set))
	for dk := range set {
		out = append(out, DateRow{Date: dk.date, Type: dk.dateType})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// WM fetches a layer's WorldMap side-table row.
func (c *Catalog) WM(name, serviceURL string) (harvest.LayerWM, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	wm, ok := c.wm[layerKey{name: name, serviceURL: serviceURL}]
	return wm, ok
}
