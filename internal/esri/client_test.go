package esri_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geoharbor/mapharvest/internal/esri"
)

func newTestClient() *esri.Client {
	return esri.NewClient(time.Second, zap.NewNop())
}

func TestDirectory(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("f"))
		_, _ = w.Write([]byte(`{
			"folders": ["hydro"],
			"services": [{"name": "roads", "type": "MapServer"}]
		}`))
	}))
	defer srv.Close()

	dir, err := newTestClient().Directory(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"hydro"}, dir.Folders)
	require.Len(t, dir.Services, 1)
	assert.Equal(t, "roads", dir.Services[0].Name)
	assert.Equal(t, srv.URL+"/roads/MapServer/", dir.Services[0].LeafURL(srv.URL))
}

func TestMapServerAndLayers(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/roads/MapServer", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"mapName": "Roads",
			"supportedExtensions": "WMSServer, KmlServer",
			"layers": [{"id": 0, "name": "all roads"}],
			"fullExtent": {"xmin": -10, "ymin": -5, "xmax": 10, "ymax": 5,
				"spatialReference": {"wkid": 4326}}
		}`))
	})
	mux.HandleFunc("/roads/MapServer/layers", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"layers": [
				{"id": 0, "name": "all roads"},
				{"id": 1, "name": "broken", "error": {"code": 500, "message": "boom"}}
			]
		}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient()
	desc, err := c.MapServer(context.Background(), srv.URL+"/roads/MapServer")
	require.NoError(t, err)
	assert.Equal(t, "Roads", desc.MapName)
	assert.Contains(t, desc.SupportedExtensions, "WMSServer")
	require.NotNil(t, desc.Ext())
	assert.Equal(t, 4326, desc.Ext().SpatialReference.WKID)

	layers, err := c.MapLayers(context.Background(), srv.URL+"/roads/MapServer/")
	require.NoError(t, err)
	require.Len(t, layers, 2)
	assert.Nil(t, layers[0].Err)
	// The embedded error object is carried on the layer, not surfaced as a
	// request error: the sibling layer is still usable.
	require.NotNil(t, layers[1].Err)
	assert.Equal(t, "boom", layers[1].Err.Message)
}

func TestImageServer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name": "relief", "serviceDescription": "hillshade"}`))
	}))
	defer srv.Close()

	desc, err := newTestClient().ImageServer(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "relief", desc.Name)
	assert.Equal(t, "hillshade", desc.ServiceDescription)
}

func TestTopLevelRemoteErrorSurfaced(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error": {"code": 499, "message": "token required"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient().MapServer(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token required")
}

func TestNon200Status(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient().Directory(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}
