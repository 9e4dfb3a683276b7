package harvest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/geoharbor/mapharvest/internal/esri"
	"github.com/geoharbor/mapharvest/internal/harvest"
)

// fakeCaps serves a fixed capabilities document, counting calls.
type fakeCaps struct {
	caps  *harvest.Capabilities
	err   error
	calls int
}

func (f *fakeCaps) GetCapabilities(_ context.Context, _ string) (*harvest.Capabilities, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.caps, nil
}

var errNotThisProtocol = errors.New("parse failed")

func missingProbe() *fakeCaps {
	return &fakeCaps{err: errNotThisProtocol}
}

// fakeEsri serves canned descriptors keyed by endpoint URL.
type fakeEsri struct {
	dirs    map[string]*esri.Directory
	maps    map[string]*esri.MapService
	layers  map[string][]esri.MapLayer
	images  map[string]*esri.ImageService
	dirErr  error
	visited []string
}

func (f *fakeEsri) Directory(_ context.Context, endpoint string) (*esri.Directory, error) {
	f.visited = append(f.visited, endpoint)
	if f.dirErr != nil {
		return nil, f.dirErr
	}
	dir, ok := f.dirs[endpoint]
	if !ok {
		return nil, errors.New("no such directory")
	}
	return dir, nil
}

func (f *fakeEsri) MapServer(_ context.Context, endpoint string) (*esri.MapService, error) {
	svc, ok := f.maps[endpoint]
	if !ok {
		return nil, errors.New("no such map server")
	}
	return svc, nil
}

func (f *fakeEsri) MapLayers(_ context.Context, endpoint string) ([]esri.MapLayer, error) {
	layers, ok := f.layers[endpoint]
	if !ok {
		return nil, errors.New("no layers resource")
	}
	return layers, nil
}

func (f *fakeEsri) ImageServer(_ context.Context, endpoint string) (*esri.ImageService, error) {
	svc, ok := f.images[endpoint]
	if !ok {
		return nil, errors.New("no such image server")
	}
	return svc, nil
}

// fakeFetcher routes GETs through a single handler func.
type fakeFetcher struct {
	handle func(rawURL string, params url.Values) ([]byte, int, error)
	gets   []string
}

func (f *fakeFetcher) Get(_ context.Context, rawURL string, params url.Values, _ http.Header) ([]byte, int, error) {
	f.gets = append(f.gets, rawURL)
	if f.handle == nil {
		return []byte("ok"), 200, nil
	}
	return f.handle(rawURL, params)
}

func (f *fakeFetcher) GetJSON(ctx context.Context, rawURL string, params url.Values, headers http.Header, out any) error {
	body, status, err := f.Get(ctx, rawURL, params, headers)
	if err != nil {
		return err
	}
	if status != 200 {
		return errors.New("unexpected status")
	}
	return json.Unmarshal(body, out)
}

// fakeMiner returns fixed dates for any text.
type fakeMiner struct {
	dates []string
}

func (f *fakeMiner) Mine(_ string) []string {
	return f.dates
}
