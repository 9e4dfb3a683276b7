package ogc

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/geoharbor/mapharvest/internal/geo"
	"github.com/geoharbor/mapharvest/internal/harvest"
)

// WMSClient parses WMS capabilities documents (1.1.1 and 1.3.0).
type WMSClient struct {
	httpGetter
}

// NewWMSClient constructs a WMSClient with the given request timeout.
func NewWMSClient(timeout time.Duration, logger *zap.Logger) *WMSClient {
	return &WMSClient{httpGetter: newGetter(timeout, logger)}
}

type wmsCapabilities struct {
	Service struct {
		Title    string `xml:"Title"`
		Abstract string `xml:"Abstract"`
	} `xml:"Service"`
	Capability struct {
		Layers []wmsLayer `xml:"Layer"`
	} `xml:"Capability"`
}

type wmsLayer struct {
	Name     string   `xml:"Name"`
	Title    string   `xml:"Title"`
	Abstract string   `xml:"Abstract"`
	Keywords []string `xml:"KeywordList>Keyword"`
	// 1.3.0 uses CRS, 1.1.1 uses SRS.
	CRS []string `xml:"CRS"`
	SRS []string `xml:"SRS"`
	// 1.3.0 geographic box.
	GeoBox *struct {
		West  float64 `xml:"westBoundLongitude"`
		East  float64 `xml:"eastBoundLongitude"`
		South float64 `xml:"southBoundLatitude"`
		North float64 `xml:"northBoundLatitude"`
	} `xml:"EX_GeographicBoundingBox"`
	// 1.1.1 geographic box.
	LatLonBox *struct {
		MinX float64 `xml:"minx,attr"`
		MinY float64 `xml:"miny,attr"`
		MaxX float64 `xml:"maxx,attr"`
		MaxY float64 `xml:"maxy,attr"`
	} `xml:"LatLonBoundingBox"`
	Children []wmsLayer `xml:"Layer"`
}

// GetCapabilities fetches and parses the endpoint's WMS capabilities.
func (c *WMSClient) GetCapabilities(ctx context.Context, endpoint string) (*harvest.Capabilities, error) {
	body, err := c.get(ctx, endpoint, url.Values{
		"service": {"WMS"},
		"request": {"GetCapabilities"},
	})
	if err != nil {
		return nil, err
	}
	root, err := rootName(body)
	if err != nil {
		return nil, err
	}
	if root != "WMS_Capabilities" && root != "WMT_MS_Capabilities" {
		return nil, fmt.Errorf("not a WMS capabilities document (root %s)", root)
	}

	var doc wmsCapabilities
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse WMS capabilities: %w", err)
	}

	caps := &harvest.Capabilities{
		Title:    doc.Service.Title,
		Abstract: doc.Service.Abstract,
	}
	for i := range doc.Capability.Layers {
		collectWMSLayers(&doc.Capability.Layers[i], nil, nil, caps)
	}
	return caps, nil
}

// collectWMSLayers flattens the nested layer tree, inheriting keywords and
// CRS options from group layers. Group layers without a Name are not
// addressable and are skipped themselves.
func collectWMSLayers(l *wmsLayer, inheritedKeywords, inheritedCRS []string, out *harvest.Capabilities) {
	keywords := append(append([]string{}, inheritedKeywords...), l.Keywords...)
	crs := append(append([]string{}, inheritedCRS...), l.CRS...)
	crs = append(crs, l.SRS...)

	if l.Name != "" {
		cap := harvest.CapLayer{
			Name:     l.Name,
			Title:    l.Title,
			Abstract: l.Abstract,
			Keywords: dedupe(keywords),
		}
		for _, ident := range dedupe(crs) {
			if code, ok := epsgCode(ident); ok {
				cap.CRS = append(cap.CRS, code)
			}
		}
		if l.GeoBox != nil {
			cap.BBoxWGS84 = &geo.BBox{X0: l.GeoBox.West, Y0: l.GeoBox.South, X1: l.GeoBox.East, Y1: l.GeoBox.North}
		} else if l.LatLonBox != nil {
			cap.BBoxWGS84 = &geo.BBox{X0: l.LatLonBox.MinX, Y0: l.LatLonBox.MinY, X1: l.LatLonBox.MaxX, Y1: l.LatLonBox.MaxY}
		}
		out.Layers = append(out.Layers, cap)
	}
	for i := range l.Children {
		collectWMSLayers(&l.Children[i], keywords, crs, out)
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
