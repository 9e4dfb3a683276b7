package ogc

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/geoharbor/mapharvest/internal/harvest"
)

// TMSClient parses OSGeo Tile Map Service resource documents.
type TMSClient struct {
	httpGetter
}

// NewTMSClient constructs a TMSClient with the given request timeout.
func NewTMSClient(timeout time.Duration, logger *zap.Logger) *TMSClient {
	return &TMSClient{httpGetter: newGetter(timeout, logger)}
}

type tmsService struct {
	Title    string `xml:"Title"`
	Abstract string `xml:"Abstract"`
	TileMaps []struct {
		Title string `xml:"title,attr"`
		SRS   string `xml:"srs,attr"`
		Href  string `xml:"href,attr"`
	} `xml:"TileMaps>TileMap"`
}

// GetCapabilities fetches and parses the endpoint's TMS root resource.
func (c *TMSClient) GetCapabilities(ctx context.Context, endpoint string) (*harvest.Capabilities, error) {
	body, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	root, err := rootName(body)
	if err != nil {
		return nil, err
	}
	if root != "TileMapService" {
		return nil, fmt.Errorf("not a TMS resource (root %s)", root)
	}

	var doc tmsService
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse TMS resource: %w", err)
	}

	caps := &harvest.Capabilities{
		Title:    doc.Title,
		Abstract: doc.Abstract,
	}
	for _, tm := range doc.TileMaps {
		cap := harvest.CapLayer{
			Name:  tm.Href,
			Title: tm.Title,
		}
		if code, ok := epsgCode(tm.SRS); ok {
			cap.CRS = append(cap.CRS, code)
		}
		caps.Layers = append(caps.Layers, cap)
	}
	return caps, nil
}
