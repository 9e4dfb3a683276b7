package ogc

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/geoharbor/mapharvest/internal/geo"
	"github.com/geoharbor/mapharvest/internal/harvest"
)

// WMTSClient parses WMTS 1.0 capabilities documents.
type WMTSClient struct {
	httpGetter
}

// NewWMTSClient constructs a WMTSClient with the given request timeout.
func NewWMTSClient(timeout time.Duration, logger *zap.Logger) *WMTSClient {
	return &WMTSClient{httpGetter: newGetter(timeout, logger)}
}

type wmtsCapabilities struct {
	Identification struct {
		Title    string `xml:"Title"`
		Abstract string `xml:"Abstract"`
	} `xml:"ServiceIdentification"`
	Contents struct {
		Layers []struct {
			Identifier string   `xml:"Identifier"`
			Title      string   `xml:"Title"`
			Abstract   string   `xml:"Abstract"`
			Keywords   []string `xml:"Keywords>Keyword"`
			WGS84Box   *struct {
				LowerCorner string `xml:"LowerCorner"`
				UpperCorner string `xml:"UpperCorner"`
			} `xml:"WGS84BoundingBox"`
		} `xml:"Layer"`
	} `xml:"Contents"`
}

// GetCapabilities fetches and parses the endpoint's WMTS capabilities.
func (c *WMTSClient) GetCapabilities(ctx context.Context, endpoint string) (*harvest.Capabilities, error) {
	body, err := c.get(ctx, endpoint, url.Values{
		"service": {"WMTS"},
		"request": {"GetCapabilities"},
	})
	if err != nil {
		return nil, err
	}
	root, err := rootName(body)
	if err != nil {
		return nil, err
	}
	if root != "Capabilities" {
		return nil, fmt.Errorf("not a WMTS capabilities document (root %s)", root)
	}

	var doc wmtsCapabilities
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse WMTS capabilities: %w", err)
	}
	if len(doc.Contents.Layers) == 0 && doc.Identification.Title == "" {
		return nil, fmt.Errorf("not a WMTS capabilities document (no contents)")
	}

	caps := &harvest.Capabilities{
		Title:    doc.Identification.Title,
		Abstract: doc.Identification.Abstract,
	}
	for _, l := range doc.Contents.Layers {
		cap := harvest.CapLayer{
			Name:     l.Identifier,
			Title:    l.Title,
			Abstract: l.Abstract,
			Keywords: dedupe(l.Keywords),
		}
		if l.WGS84Box != nil {
			if b, ok := parseCorners(l.WGS84Box.LowerCorner, l.WGS84Box.UpperCorner); ok {
				cap.BBoxWGS84 = b
			}
		}
		caps.Layers = append(caps.Layers, cap)
	}
	return caps, nil
}

// parseCorners reads "lon lat" corner pairs from an OWS bounding box.
func parseCorners(lower, upper string) (*geo.BBox, bool) {
	lo := strings.Fields(lower)
	up := strings.Fields(upper)
	if len(lo) != 2 || len(up) != 2 {
		return nil, false
	}
	vals := make([]float64, 4)
	for i, s := range []string{lo[0], lo[1], up[0], up[1]} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		vals[i] = v
	}
	return &geo.BBox{X0: vals[0], Y0: vals[1], X1: vals[2], Y1: vals[3]}, true
}
