package harvest

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geoharbor/mapharvest/internal/metrics"
)

// Config carries the knobs shared by the detector and the harvesters.
type Config struct {
	// SiteURL is the public base the layer detail pages live under.
	SiteURL string
	// WorldMapAPIURL is the WorldMap catalog search endpoint.
	WorldMapAPIURL string
	// WorldMapGeoserverURL is the companion GeoServer that exposes every
	// WorldMap layer as a virtual WMS endpoint.
	WorldMapGeoserverURL string
	// CRSLookupURL is the prj2epsg-style WKT-to-code resolver.
	CRSLookupURL string
	// PageSize is the WorldMap catalog page size.
	PageSize int
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = 10
	}
	return c
}

// Harvester enumerates the layers of a registered service and upserts
// normalized records into the catalog.
type Harvester struct {
	catalog Catalog
	wms     CapabilitiesClient
	wmts    CapabilitiesClient
	esri    EsriClient
	fetch   Fetcher
	miner   DateMiner
	records RecordBuilder
	cfg     Config
	logger  *zap.Logger
}

// NewHarvester constructs a Harvester.
func NewHarvester(
	catalog Catalog,
	wms CapabilitiesClient,
	wmts CapabilitiesClient,
	esri EsriClient,
	fetch Fetcher,
	miner DateMiner,
	records RecordBuilder,
	cfg Config,
	logger *zap.Logger,
) *Harvester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Harvester{
		catalog: catalog,
		wms:     wms,
		wmts:    wmts,
		esri:    esri,
		fetch:   fetch,
		miner:   miner,
		records: records,
		cfg:     cfg.withDefaults(),
		logger:  logger,
	}
}

// Harvest dispatches to the protocol pipeline matching the service type.
func (h *Harvester) Harvest(ctx context.Context, svc Service) error {
	switch svc.Type {
	case TypeWMS:
		return h.harvestWMS(ctx, svc)
	case TypeWMTS:
		return h.harvestWMTS(ctx, svc)
	case TypeWorldMap:
		return h.harvestWorldMap(ctx, svc)
	case TypeWarper:
		return h.harvestWarper(ctx, svc)
	case TypeEsriMapServer:
		return h.harvestEsriMapServer(ctx, svc)
	case TypeEsriImageServer:
		return h.harvestEsriImageServer(ctx, svc)
	default:
		return fmt.Errorf("no harvester for service type %s", svc.Type)
	}
}

// layerUUID derives the stable identifier of a layer from its natural key,
// so re-harvests always produce the same catalog record identifier.
func layerUUID(serviceURL, name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(serviceURL+"#"+name))
}

func serviceUUID(serviceURL string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(serviceURL))
}

// pagePath is the site-relative detail page path of a layer.
func pagePath(serviceURL, name string) string {
	return "/layers/" + layerUUID(serviceURL, name).String()
}

// detailLink is the absolute WWW:LINK reference for a layer page.
func (h *Harvester) detailLink(pagePath string) string {
	return strings.TrimRight(h.cfg.SiteURL, "/") + pagePath
}

// buildRecord assembles and attaches the XML record and anytext blob.
func (h *Harvester) buildRecord(layer *Layer, svc Service, format string, keywords []string, srs *int) {
	links := []Link{{Protocol: format, URL: svc.URL}}
	pageLink := layer.PageURL
	if !strings.Contains(pageLink, "://") {
		pageLink = h.detailLink(pageLink)
	}
	links = append(links, Link{Protocol: "WWW:LINK", URL: pageLink})

	xmlDoc, err := h.records.Build(CatalogRecord{
		Identifier:  "urn:uuid:" + layerUUID(svc.URL, layer.Name).String(),
		Source:      svc.URL,
		Links:       links,
		Format:      format,
		Type:        "dataset",
		Relation:    "urn:uuid:" + serviceUUID(svc.URL).String(),
		Title:       layer.Title,
		Alternative: layer.Name,
		Abstract:    layer.Abstract,
		Keywords:    keywords,
		WKTGeometry: layer.WKTGeometry,
		SRS:         srs,
	})
	if err != nil {
		// A malformed record never blocks the layer itself.
		h.logger.Warn("building catalog record failed",
			zap.String("layer", layer.Name), zap.Error(err))
	} else {
		layer.XML = xmlDoc
	}
	layer.AnyText = h.records.AnyText(layer.Title, layer.Abstract, keywords...)
}

// checkBBox logs the corruption invariant: after repair x0<=x1 and y0<=y1
// must hold. Violations are diagnostic only.
func (h *Harvester) checkBBox(layer *Layer) {
	if layer.BBox.X0 > layer.BBox.X1 || layer.BBox.Y0 > layer.BBox.Y1 {
		h.logger.Warn("layer bbox still inverted after repair",
			zap.String("layer", layer.Name),
			zap.Float64("x0", layer.BBox.X0), zap.Float64("x1", layer.BBox.X1),
			zap.Float64("y0", layer.BBox.Y0), zap.Float64("y1", layer.BBox.Y1))
	}
}

// persistLayer stores the layer and counts it.
func (h *Harvester) persistLayer(ctx context.Context, layer Layer, protocol string) error {
	if err := h.catalog.UpdateLayer(ctx, layer); err != nil {
		return fmt.Errorf("update layer %s: %w", layer.Name, err)
	}
	metrics.LayerHarvested(protocol)
	return nil
}

// escapePath makes a layer name safe to embed in a URL path.
func escapePath(name string) string {
	return url.PathEscape(name)
}
