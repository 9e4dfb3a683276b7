package harvest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/geoharbor/mapharvest/internal/geo"
	"github.com/geoharbor/mapharvest/internal/metrics"
)

type warperItem struct {
	ID            any    `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	BBox          string `json:"bbox"`
	PublishedDate any    `json:"published_date"`
	DateDepicted  any    `json:"date_depicted"`
	DepictsYear   any    `json:"depicts_year"`
	IssueYear     any    `json:"issue_year"`
}

type warperPage struct {
	TotalPages any          `json:"total_pages"`
	Items      []warperItem `json:"items"`
}

func warperParams(page int) url.Values {
	params := url.Values{
		"field":       {"title"},
		"query":       {""},
		"show_warped": {"1"},
		"format":      {"json"},
	}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	return params
}

var warperHeaders = http.Header{
	"Content-Type": {"application/json"},
	"Accept":       {"application/json"},
}

// harvestWarper walks a tile-warper catalog page by page and upserts one
// layer per map item.
func (h *Harvester) harvestWarper(ctx context.Context, svc Service) error {
	var first warperPage
	if err := h.fetch.GetJSON(ctx, svc.URL, warperParams(0), warperHeaders, &first); err != nil {
		return fmt.Errorf("warper first page: %w", err)
	}
	totalPages := intValue(first.TotalPages)

	for page := 1; page <= totalPages; page++ {
		var resp warperPage
		if err := h.fetch.GetJSON(ctx, svc.URL, warperParams(page), warperHeaders, &resp); err != nil {
			h.logger.Warn("warper page fetch failed", zap.Int("page", page), zap.Error(err))
			metrics.HarvestError(LayerTypeWarper)
			continue
		}
		h.logger.Info("fetched warper page", zap.Int("page", page), zap.Int("items", len(resp.Items)))
		for _, item := range resp.Items {
			if err := h.syncWarperItem(ctx, svc, item); err != nil {
				h.logger.Warn("warper layer harvest failed",
					zap.String("layer", stringValue(item.ID)), zap.Error(err))
				metrics.HarvestError(LayerTypeWarper)
			}
		}
	}
	return nil
}

func (h *Harvester) syncWarperItem(ctx context.Context, svc Service, item warperItem) error {
	name := stringValue(item.ID)
	if name == "" {
		return fmt.Errorf("item has no id")
	}

	// Candidate explicit dates in fixed field order; absent fields drop out.
	var dates []string
	for _, v := range []any{item.PublishedDate, item.DateDepicted, item.DepictsYear, item.IssueYear} {
		if s := stringValue(v); s != "" {
			dates = append(dates, s)
		}
	}

	layer, _, err := h.catalog.GetOrCreateLayer(ctx, name, svc.URL)
	if err != nil {
		return fmt.Errorf("get or create layer: %w", err)
	}
	if !layer.Active {
		h.logger.Debug("skipping inactive layer", zap.String("layer", layer.Name))
		return nil
	}

	layer.Type = LayerTypeWarper
	layer.Title = item.Title
	layer.Abstract = item.Description
	layer.IsPublic = true
	base := strings.TrimRight(svc.URL, "/")
	layer.URL = fmt.Sprintf("%s/wms/%s?", base, escapePath(name))
	layer.PageURL = fmt.Sprintf("%s/%s", base, escapePath(name))

	// The warper bbox is a comma-separated string; each part goes through
	// the float sanitizer.
	bbox := geo.DefaultBBox
	if item.BBox != "" {
		parts := strings.Split(item.BBox, ",")
		if len(parts) == 4 {
			x0, okX0 := geo.SanitizeFloat(parts[0])
			y0, okY0 := geo.SanitizeFloat(parts[1])
			x1, okX1 := geo.SanitizeFloat(parts[2])
			y1, okY1 := geo.SanitizeFloat(parts[3])
			if okX0 && okY0 && okX1 && okY1 {
				bbox = geo.BBox{X0: x0, Y0: y0, X1: x1, Y1: y1}
			}
		}
	}
	layer.BBox = bbox
	layer.WKTGeometry = bbox.WKT()
	h.checkBBox(&layer)

	for _, code := range worldMapSRSCodes {
		if err := h.catalog.EnsureSRS(ctx, layer.Name, layer.ServiceURL, code); err != nil {
			return fmt.Errorf("ensure srs: %w", err)
		}
	}

	h.buildRecord(&layer, svc, LayerTypeWarper, nil, nil)
	if err := h.persistLayer(ctx, layer, LayerTypeWarper); err != nil {
		return err
	}
	if err := h.addMinedDates(ctx, layer); err != nil {
		return err
	}
	return h.addMetadataDates(ctx, layer, dates)
}

// stringValue renders loosely typed JSON scalars (string or number) as the
// string the legacy pipeline would have seen.
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func intValue(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}
