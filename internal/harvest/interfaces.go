package harvest

import (
	"context"
	"net/http"
	"net/url"

	"github.com/geoharbor/mapharvest/internal/esri"
)

// Catalog is the relational store collaborator. Every mutation is an
// idempotent upsert by natural key: repeating a call with the same values
// never produces duplicate rows.
type Catalog interface {
	// CreateService registers a service once per URL. Registering an
	// existing URL is a silent no-op reported through created=false.
	CreateService(ctx context.Context, svc Service) (created bool, err error)
	// GetService fetches a registered service by URL, store.ErrNotFound-style
	// error when absent.
	GetService(ctx context.Context, url string) (Service, error)

	// GetOrCreateLayer looks up a layer by (name, serviceURL), creating it
	// with defaults (Active=true, IsPublic=true) when missing.
	GetOrCreateLayer(ctx context.Context, name, serviceURL string) (Layer, bool, error)
	// UpdateLayer persists the mutated fields of an existing layer.
	UpdateLayer(ctx context.Context, layer Layer) error

	// AddKeyword associates a free-form tag with a layer. Additive only.
	AddKeyword(ctx context.Context, name, serviceURL, keyword string) error
	// EnsureSRS lazily creates a spatial reference system row by code and
	// associates it with the layer.
	EnsureSRS(ctx context.Context, name, serviceURL string, code int) error
	// AddLayerDate upserts one (layer, date, type) row.
	AddLayerDate(ctx context.Context, name, serviceURL, date string, dateType int) error
	// UpsertLayerWM stores the WorldMap side-table fields for a layer.
	UpsertLayerWM(ctx context.Context, name, serviceURL string, wm LayerWM) error
}

// CapabilitiesClient parses one protocol's capabilities document from an
// endpoint. A parse failure means the endpoint does not speak the protocol.
type CapabilitiesClient interface {
	GetCapabilities(ctx context.Context, endpoint string) (*Capabilities, error)
}

// EsriClient reads ESRI REST directory, map-service and image-service
// descriptors.
type EsriClient interface {
	Directory(ctx context.Context, endpoint string) (*esri.Directory, error)
	MapServer(ctx context.Context, endpoint string) (*esri.MapService, error)
	MapLayers(ctx context.Context, endpoint string) ([]esri.MapLayer, error)
	ImageServer(ctx context.Context, endpoint string) (*esri.ImageService, error)
}

// Fetcher is the generic HTTP GET collaborator used by the catalog-style
// protocols and the CRS lookup.
type Fetcher interface {
	Get(ctx context.Context, rawURL string, params url.Values, headers http.Header) ([]byte, int, error)
	GetJSON(ctx context.Context, rawURL string, params url.Values, headers http.Header, out any) error
}

// DateMiner extracts date-like values from unstructured text.
type DateMiner interface {
	Mine(text string) []string
}

// RecordBuilder assembles the catalog XML record and the flattened search
// blob for a normalized layer.
type RecordBuilder interface {
	Build(rec CatalogRecord) (string, error)
	AnyText(title, abstract string, keywords ...string) string
}
