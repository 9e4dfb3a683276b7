package harvest

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// dateLayouts are tried in order when parsing explicit metadata dates.
// Layouts with missing components inherit them from the fixed 2016-01-01
// anchor encoded in Go's reference date handling (January 1st).
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2006",
	"2006-01",
	"2006",
}

// parseMetadataDate normalizes one explicit date string to YYYY-MM-DD.
func parseMetadataDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// addMetadataDates stores explicit metadata dates for a layer. BCE-era
// literals (leading "-") are kept verbatim; anything else is parsed and
// truncated to the date-only ISO portion. Unparseable candidates are
// skipped with a diagnostic log, never an error.
func (h *Harvester) addMetadataDates(ctx context.Context, layer Layer, dates []string) error {
	for _, raw := range dates {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "-") {
			if err := h.catalog.AddLayerDate(ctx, layer.Name, layer.ServiceURL, raw, DateMetadata); err != nil {
				return err
			}
			continue
		}
		iso, ok := parseMetadataDate(raw)
		if !ok {
			h.logger.Debug("skipping invalid metadata date",
				zap.String("layer", layer.Name), zap.String("date", raw))
			continue
		}
		if err := h.catalog.AddLayerDate(ctx, layer.Name, layer.ServiceURL, iso, DateMetadata); err != nil {
			return err
		}
	}
	return nil
}

// addMinedDates mines the layer's title and abstract for dates and stores
// each hit as a mined date.
func (h *Harvester) addMinedDates(ctx context.Context, layer Layer) error {
	text := layer.Title
	if layer.Abstract != "" {
		text += " " + layer.Abstract
	}
	for _, date := range h.miner.Mine(text) {
		if err := h.catalog.AddLayerDate(ctx, layer.Name, layer.ServiceURL, date, DateMined); err != nil {
			return err
		}
	}
	return nil
}
