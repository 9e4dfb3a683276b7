package harvest

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/geoharbor/mapharvest/internal/geo"
	"github.com/geoharbor/mapharvest/internal/metrics"
)

// WorldMap SRS fixture: every layer is served in these projections.
var worldMapSRSCodes = []int{3857, 4326, 900913}

type worldMapBBox struct {
	MinX any `json:"minx"`
	MinY any `json:"miny"`
	MaxX any `json:"maxx"`
	MaxY any `json:"maxy"`
}

type worldMapRow struct {
	Name                string       `json:"name"`
	Title               string       `json:"title"`
	Abstract            string       `json:"abstract"`
	BBox                worldMapBBox `json:"bbox"`
	Detail              string       `json:"detail"`
	TopicCategory       string       `json:"topic_category"`
	OwnerUsername       string       `json:"owner_username"`
	TemporalExtentStart string       `json:"temporal_extent_start"`
	TemporalExtentEnd   string       `json:"temporal_extent_end"`
	Keywords            []string     `json:"keywords"`
	Permissions         *struct {
		View bool `json:"view"`
	} `json:"_permissions"`
}

type worldMapPage struct {
	Total int            `json:"total"`
	Rows  []worldMapRow  `json:"rows"`
}

// harvestWorldMap walks the paginated WorldMap catalog API and upserts one
// layer per row, including the WorldMap-only side-table fields.
func (h *Harvester) harvestWorldMap(ctx context.Context, svc Service) error {
	apiURL := h.cfg.WorldMapAPIURL
	if apiURL == "" {
		apiURL = svc.URL
	}
	pageSize := h.cfg.PageSize

	var first worldMapPage
	if err := h.fetch.GetJSON(ctx, apiURL, url.Values{
		"start": {"0"}, "limit": {strconv.Itoa(pageSize)},
	}, nil, &first); err != nil {
		return fmt.Errorf("worldmap first page: %w", err)
	}

	for start := 0; start < first.Total; start += pageSize {
		var page worldMapPage
		if err := h.fetch.GetJSON(ctx, apiURL, url.Values{
			"start": {strconv.Itoa(start)}, "limit": {strconv.Itoa(pageSize)},
		}, nil, &page); err != nil {
			h.logger.Warn("worldmap page fetch failed",
				zap.Int("start", start), zap.Error(err))
			metrics.HarvestError(LayerTypeWM)
			continue
		}
		h.logger.Info("fetched worldmap page", zap.Int("start", start), zap.Int("rows", len(page.Rows)))
		for _, row := range page.Rows {
			if err := h.syncWorldMapRow(ctx, svc, row); err != nil {
				h.logger.Warn("worldmap layer harvest failed",
					zap.String("layer", row.Name), zap.Error(err))
				metrics.HarvestError(LayerTypeWM)
			}
		}
	}
	return nil
}

func (h *Harvester) syncWorldMapRow(ctx context.Context, svc Service, row worldMapRow) error {
	layer, _, err := h.catalog.GetOrCreateLayer(ctx, row.Name, svc.URL)
	if err != nil {
		return fmt.Errorf("get or create layer: %w", err)
	}
	if !layer.Active {
		h.logger.Debug("skipping inactive layer", zap.String("layer", layer.Name))
		return nil
	}

	layer.Type = LayerTypeWM
	layer.Title = row.Title
	layer.Abstract = row.Abstract
	layer.PageURL = row.Detail
	// Every WorldMap layer is exposed as a GeoServer virtual WMS endpoint.
	layer.URL = fmt.Sprintf("%s/geonode/%s/wms?",
		strings.TrimRight(h.cfg.WorldMapGeoserverURL, "/"), escapePath(row.Name))

	layer.IsPublic = true
	if row.Permissions != nil && !row.Permissions.View {
		layer.IsPublic = false
	}

	wm := LayerWM{
		Category:            row.TopicCategory,
		Username:            row.OwnerUsername,
		TemporalExtentStart: row.TemporalExtentStart,
		TemporalExtentEnd:   row.TemporalExtentEnd,
	}
	if err := h.catalog.UpsertLayerWM(ctx, layer.Name, layer.ServiceURL, wm); err != nil {
		return fmt.Errorf("upsert layer_wm: %w", err)
	}

	// The remote occasionally serves min/max swapped per axis; repair
	// before storing.
	bbox := geo.DefaultBBox
	x0, okX0 := geo.SanitizeValue(row.BBox.MinX)
	y0, okY0 := geo.SanitizeValue(row.BBox.MinY)
	x1, okX1 := geo.SanitizeValue(row.BBox.MaxX)
	y1, okY1 := geo.SanitizeValue(row.BBox.MaxY)
	if okX0 && okY0 && okX1 && okY1 {
		bbox = geo.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1}.Repair(h.logger)
	}
	layer.BBox = bbox
	layer.WKTGeometry = bbox.WKT()
	h.checkBBox(&layer)

	for _, kw := range row.Keywords {
		if err := h.catalog.AddKeyword(ctx, layer.Name, layer.ServiceURL, kw); err != nil {
			return fmt.Errorf("add keyword: %w", err)
		}
	}
	for _, code := range worldMapSRSCodes {
		if err := h.catalog.EnsureSRS(ctx, layer.Name, layer.ServiceURL, code); err != nil {
			return fmt.Errorf("ensure srs: %w", err)
		}
	}

	h.buildRecord(&layer, svc, LayerTypeWM, row.Keywords, nil)
	if err := h.persistLayer(ctx, layer, LayerTypeWM); err != nil {
		return err
	}
	if err := h.addMinedDates(ctx, layer); err != nil {
		return err
	}
	return h.addMetadataDates(ctx, layer, []string{wm.TemporalExtentStart, wm.TemporalExtentEnd})
}
