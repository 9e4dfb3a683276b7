package server_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geoharbor/mapharvest/internal/harvest"
	"github.com/geoharbor/mapharvest/internal/server"
	"github.com/geoharbor/mapharvest/internal/store/memory"
)

type fakeDetector struct {
	detected bool
	message  string
	urls     []string
}

func (f *fakeDetector) Detect(_ context.Context, rawURL string) (bool, string) {
	f.urls = append(f.urls, rawURL)
	return f.detected, f.message
}

type fakeHarvester struct {
	err      error
	services []harvest.Service
}

func (f *fakeHarvester) Harvest(_ context.Context, svc harvest.Service) error {
	f.services = append(f.services, svc)
	return f.err
}

func newTestServer(det *fakeDetector, h *fakeHarvester, cat *memory.Catalog) *httptest.Server {
	return httptest.NewServer(server.NewServer(det, h, cat, zap.NewNop()).Handler())
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	ts := newTestServer(&fakeDetector{}, &fakeHarvester{}, memory.NewCatalog())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	ts := newTestServer(&fakeDetector{}, &fakeHarvester{}, memory.NewCatalog())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSubmitEndpoint(t *testing.T) {
	t.Parallel()

	det := &fakeDetector{detected: true, message: "1 service/s created"}
	ts := newTestServer(det, &fakeHarvester{}, memory.NewCatalog())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/endpoints", "application/json",
		strings.NewReader(`{"url": "http://h/wms"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"http://h/wms"}, det.urls)
}

func TestSubmitEndpointMissingURL(t *testing.T) {
	t.Parallel()

	ts := newTestServer(&fakeDetector{}, &fakeHarvester{}, memory.NewCatalog())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/endpoints", "application/json",
		strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHarvestUnknownService(t *testing.T) {
	t.Parallel()

	ts := newTestServer(&fakeDetector{}, &fakeHarvester{}, memory.NewCatalog())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/services/harvest", "application/json",
		strings.NewReader(`{"url": "http://h/nope"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHarvestRegisteredService(t *testing.T) {
	t.Parallel()

	cat := memory.NewCatalog()
	_, err := cat.CreateService(context.Background(), harvest.Service{
		URL: "http://h/wms", Type: harvest.TypeWMS,
	})
	require.NoError(t, err)
	h := &fakeHarvester{}
	ts := newTestServer(&fakeDetector{}, h, cat)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/services/harvest", "application/json",
		strings.NewReader(`{"url": "http://h/wms"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, h.services, 1)
	assert.Equal(t, harvest.TypeWMS, h.services[0].Type)
}

func TestHarvestUpstreamFailure(t *testing.T) {
	t.Parallel()

	cat := memory.NewCatalog()
	_, err := cat.CreateService(context.Background(), harvest.Service{
		URL: "http://h/wms", Type: harvest.TypeWMS,
	})
	require.NoError(t, err)
	h := &fakeHarvester{err: errors.New("remote went away")}
	ts := newTestServer(&fakeDetector{}, h, cat)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/v1/services/harvest", "application/json",
		strings.NewReader(`{"url": "http://h/wms"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestGetService(t *testing.T) {
	t.Parallel()

	cat := memory.NewCatalog()
	_, err := cat.CreateService(context.Background(), harvest.Service{
		URL: "http://h/wms", Type: harvest.TypeWMS, Title: "Geo server",
	})
	require.NoError(t, err)
	ts := newTestServer(&fakeDetector{}, &fakeHarvester{}, cat)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/services/?url=" + "http%3A%2F%2Fh%2Fwms")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
