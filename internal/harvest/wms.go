package harvest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/geoharbor/mapharvest/internal/geo"
	"github.com/geoharbor/mapharvest/internal/metrics"
)

// harvestWMS updates the layers of an OGC:WMS service.
func (h *Harvester) harvestWMS(ctx context.Context, svc Service) error {
	return h.harvestCapabilities(ctx, svc, h.wms, string(TypeWMS), string(TypeWMS))
}

// harvestWMTS updates the layers of an OGC:WMTS service. The metadata
// record keeps the OGC:WMS format tag of the legacy pipeline.
func (h *Harvester) harvestWMTS(ctx context.Context, svc Service) error {
	return h.harvestCapabilities(ctx, svc, h.wmts, string(TypeWMTS), string(TypeWMS))
}

// harvestCapabilities is the shared WMS/WMTS pipeline: every layer in the
// capabilities document is upserted, normalized and enriched. A failure on
// one layer is logged and the siblings still processed.
func (h *Harvester) harvestCapabilities(ctx context.Context, svc Service, client CapabilitiesClient, layerType, formatTag string) error {
	if client == nil {
		return fmt.Errorf("no capabilities client for %s", layerType)
	}
	caps, err := client.GetCapabilities(ctx, svc.URL)
	if err != nil {
		return fmt.Errorf("get capabilities for %s: %w", svc.URL, err)
	}

	for _, capLayer := range caps.Layers {
		if err := h.syncCapLayer(ctx, svc, capLayer, layerType, formatTag); err != nil {
			h.logger.Warn("layer harvest failed",
				zap.String("service", svc.URL),
				zap.String("layer", capLayer.Name),
				zap.Error(err))
			metrics.HarvestError(layerType)
		}
	}
	return nil
}

func (h *Harvester) syncCapLayer(ctx context.Context, svc Service, capLayer CapLayer, layerType, formatTag string) error {
	layer, _, err := h.catalog.GetOrCreateLayer(ctx, capLayer.Name, svc.URL)
	if err != nil {
		return fmt.Errorf("get or create layer: %w", err)
	}
	if !layer.Active {
		h.logger.Debug("skipping inactive layer", zap.String("layer", layer.Name))
		return nil
	}
	h.logger.Info("updating layer", zap.String("layer", layer.Name), zap.String("type", layerType))

	layer.Type = layerType
	layer.Title = capLayer.Title
	layer.Abstract = capLayer.Abstract
	layer.URL = svc.URL
	layer.PageURL = pagePath(svc.URL, layer.Name)

	bbox := geo.DefaultBBox
	if capLayer.BBoxWGS84 != nil {
		bbox = *capLayer.BBoxWGS84
	}
	layer.BBox = bbox
	layer.WKTGeometry = bbox.WKT()
	h.checkBBox(&layer)

	for _, kw := range capLayer.Keywords {
		if err := h.catalog.AddKeyword(ctx, layer.Name, layer.ServiceURL, kw); err != nil {
			return fmt.Errorf("add keyword: %w", err)
		}
	}
	for _, code := range capLayer.CRS {
		if err := h.catalog.EnsureSRS(ctx, layer.Name, layer.ServiceURL, code); err != nil {
			return fmt.Errorf("ensure srs: %w", err)
		}
	}

	h.buildRecord(&layer, svc, formatTag, capLayer.Keywords, nil)
	if err := h.persistLayer(ctx, layer, layerType); err != nil {
		return err
	}
	return h.addMinedDates(ctx, layer)
}
