package harvest

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/geoharbor/mapharvest/internal/esri"
	"github.com/geoharbor/mapharvest/internal/geo"
	"github.com/geoharbor/mapharvest/internal/metrics"
)

// Web-mercator codes whose extents are converted to WGS84 before storage.
var mercatorCodes = map[int]struct{}{
	3857:   {},
	900913: {},
	102100: {},
	102113: {},
}

// harvestEsriMapServer updates the layers of an ESRI REST MapServer. As a
// side effect it registers a companion OGC:WMS service when the remote
// advertises a WMS extension.
func (h *Harvester) harvestEsriMapServer(ctx context.Context, svc Service) error {
	desc, err := h.esri.MapServer(ctx, svc.URL)
	if err != nil {
		return fmt.Errorf("map server descriptor %s: %w", svc.URL, err)
	}

	if strings.Contains(desc.SupportedExtensions, "WMSServer") {
		h.registerCompanionWMS(ctx, svc.URL)
	}

	layers, err := h.esri.MapLayers(ctx, svc.URL)
	if err != nil {
		return fmt.Errorf("map server layers %s: %w", svc.URL, err)
	}
	for _, ml := range layers {
		// Some remotes embed an error object in the layer descriptor;
		// that layer is broken, its siblings are not.
		if ml.Err != nil {
			h.logger.Warn("skipping broken remote layer",
				zap.String("service", svc.URL),
				zap.Int("layer_id", ml.ID),
				zap.String("remote_error", ml.Err.Message))
			metrics.HarvestError(string(TypeEsriMapServer))
			continue
		}
		if err := h.syncEsriMapLayer(ctx, svc, desc, ml); err != nil {
			h.logger.Warn("esri layer harvest failed",
				zap.String("service", svc.URL),
				zap.Int("layer_id", ml.ID),
				zap.Error(err))
			metrics.HarvestError(string(TypeEsriMapServer))
		}
	}
	return nil
}

// registerCompanionWMS rewrites the REST URL to the legacy WMS form and
// registers it. Best effort: remotes using a query-string variant beyond
// f=json/f=pjson are skipped silently.
func (h *Harvester) registerCompanionWMS(ctx context.Context, restURL string) {
	// Only the two known query-string variants are rewritten; a third
	// variant yields a URL without the WMSServer suffix and the probe on
	// it will simply miss.
	wmsURL := strings.Replace(restURL, "/rest/services/", "/services/", 1)
	if strings.Contains(wmsURL, "?f=pjson") {
		wmsURL = strings.Replace(wmsURL, "?f=pjson", "WMSServer?", 1)
	} else if strings.Contains(wmsURL, "?f=json") {
		wmsURL = strings.Replace(wmsURL, "?f=json", "WMSServer?", 1)
	}
	h.logger.Info("registering companion WMS interface", zap.String("url", wmsURL))
	if _, status, err := h.fetch.Get(ctx, wmsURL, nil, nil); err != nil || status != 200 {
		h.logger.Warn("companion WMS endpoint not reachable",
			zap.String("url", wmsURL), zap.Int("status", status), zap.Error(err))
		return
	}
	created, err := h.catalog.CreateService(ctx, Service{URL: wmsURL, Type: TypeWMS})
	if err != nil {
		h.logger.Warn("companion WMS registration failed", zap.Error(err))
		return
	}
	if created {
		metrics.ServiceCreated(string(TypeWMS))
	}
}

func (h *Harvester) syncEsriMapLayer(ctx context.Context, svc Service, desc *esri.MapService, ml esri.MapLayer) error {
	name := strconv.Itoa(ml.ID)
	layer, _, err := h.catalog.GetOrCreateLayer(ctx, name, svc.URL)
	if err != nil {
		return fmt.Errorf("get or create layer: %w", err)
	}
	if !layer.Active {
		h.logger.Debug("skipping inactive layer", zap.String("layer", layer.Name))
		return nil
	}
	h.logger.Info("updating layer", zap.String("layer", ml.Name), zap.String("type", string(TypeEsriMapServer)))

	layer.Type = string(TypeEsriMapServer)
	layer.Title = ml.Name
	layer.Abstract = desc.ServiceDescription
	layer.URL = svc.URL
	layer.PageURL = pagePath(svc.URL, name)

	srs := 4326
	bbox := geo.DefaultBBox
	if ml.Extent != nil {
		bbox = geo.BBox{X0: ml.Extent.XMin, Y0: ml.Extent.YMin, X1: ml.Extent.XMax, Y1: ml.Extent.YMax}
		srs = h.resolveSRS(ctx, ml.Extent.SpatialReference)
		bbox = h.toWGS84(bbox, srs, layer.Name)
	}
	layer.BBox = bbox
	layer.WKTGeometry = bbox.WKT()
	h.checkBBox(&layer)

	if err := h.catalog.EnsureSRS(ctx, layer.Name, layer.ServiceURL, srs); err != nil {
		return fmt.Errorf("ensure srs: %w", err)
	}

	h.buildRecord(&layer, svc, string(TypeEsriMapServer), nil, &srs)
	if err := h.persistLayer(ctx, layer, string(TypeEsriMapServer)); err != nil {
		return err
	}
	return h.addMinedDates(ctx, layer)
}

// harvestEsriImageServer registers the single synthetic layer an
// ImageServer exposes: the service itself.
func (h *Harvester) harvestEsriImageServer(ctx context.Context, svc Service) error {
	desc, err := h.esri.ImageServer(ctx, svc.URL)
	if err != nil {
		return fmt.Errorf("image server descriptor %s: %w", svc.URL, err)
	}

	layer, _, err := h.catalog.GetOrCreateLayer(ctx, desc.Name, svc.URL)
	if err != nil {
		return fmt.Errorf("get or create layer: %w", err)
	}
	if !layer.Active {
		h.logger.Debug("skipping inactive layer", zap.String("layer", layer.Name))
		return nil
	}

	layer.Type = string(TypeEsriImageServer)
	layer.Title = desc.Name
	layer.Abstract = desc.ServiceDescription
	layer.URL = svc.URL
	layer.PageURL = pagePath(svc.URL, desc.Name)

	srs := 4326
	bbox := geo.DefaultBBox
	if desc.Extent != nil {
		bbox = geo.BBox{X0: desc.Extent.XMin, Y0: desc.Extent.YMin, X1: desc.Extent.XMax, Y1: desc.Extent.YMax}
		srs = h.resolveSRS(ctx, desc.Extent.SpatialReference)
		bbox = h.toWGS84(bbox, srs, layer.Name)
	}
	layer.BBox = bbox
	layer.WKTGeometry = bbox.WKT()
	h.checkBBox(&layer)

	if err := h.catalog.EnsureSRS(ctx, layer.Name, layer.ServiceURL, srs); err != nil {
		return fmt.Errorf("ensure srs: %w", err)
	}

	h.buildRecord(&layer, svc, string(TypeEsriImageServer), nil, &srs)
	if err := h.persistLayer(ctx, layer, string(TypeEsriImageServer)); err != nil {
		return err
	}
	return h.addMinedDates(ctx, layer)
}

// resolveSRS applies the two-tier fallback: the structured wkid when
// present, else a WKT lookup against the CRS resolver, else EPSG:4326.
func (h *Harvester) resolveSRS(ctx context.Context, ref *esri.SpatialReference) int {
	if ref == nil {
		return 4326
	}
	if ref.WKID != 0 {
		return ref.WKID
	}
	if ref.WKT == "" || h.cfg.CRSLookupURL == "" {
		return 4326
	}

	var resp struct {
		Codes []struct {
			Code string `json:"code"`
		} `json:"codes"`
	}
	params := url.Values{
		"exact": {"True"},
		"error": {"True"},
		"mode":  {"wkt"},
		"terms": {ref.WKT},
	}
	if err := h.fetch.GetJSON(ctx, h.cfg.CRSLookupURL, params, nil, &resp); err != nil {
		h.logger.Warn("crs lookup failed", zap.Error(err))
		return 4326
	}
	if len(resp.Codes) == 0 {
		return 4326
	}
	code, err := strconv.Atoi(resp.Codes[0].Code)
	if err != nil {
		h.logger.Warn("crs lookup returned non-numeric code",
			zap.String("code", resp.Codes[0].Code))
		return 4326
	}
	return code
}

// toWGS84 converts web-mercator extents to degrees; extents already in a
// geographic code are stored as-is.
func (h *Harvester) toWGS84(bbox geo.BBox, srs int, layerName string) geo.BBox {
	if _, ok := mercatorCodes[srs]; !ok {
		return bbox
	}
	converted := geo.MercatorToLL(bbox)
	h.logger.Debug("converted mercator extent to WGS84",
		zap.String("layer", layerName), zap.Int("srs", srs))
	return converted
}
