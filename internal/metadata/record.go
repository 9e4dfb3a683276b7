// Package metadata assembles catalog records for normalized layers: a
// Dublin-Core-flavored XML document plus the flattened anytext search blob.
package metadata

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/geoharbor/mapharvest/internal/harvest"
)

// Builder implements harvest.RecordBuilder.
type Builder struct{}

// NewBuilder constructs a Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

type cswRecord struct {
	XMLName     xml.Name  `xml:"csw:Record"`
	CswNS       string    `xml:"xmlns:csw,attr"`
	DcNS        string    `xml:"xmlns:dc,attr"`
	DctNS       string    `xml:"xmlns:dct,attr"`
	OwsNS       string    `xml:"xmlns:ows,attr"`
	Identifier  string    `xml:"dc:identifier"`
	Title       string    `xml:"dc:title"`
	Alternative string    `xml:"dct:alternative,omitempty"`
	Type        string    `xml:"dc:type"`
	Format      string    `xml:"dc:format"`
	Source      string    `xml:"dc:source"`
	Relation    string    `xml:"dc:relation,omitempty"`
	Subjects    []string  `xml:"dc:subject"`
	Abstract    string    `xml:"dct:abstract,omitempty"`
	References  []cswLink `xml:"dct:references"`
	Box         *cswBox   `xml:"ows:BoundingBox,omitempty"`
}

type cswLink struct {
	Scheme string `xml:"scheme,attr"`
	URL    string `xml:",chardata"`
}

type cswBox struct {
	CRS         string `xml:"crs,attr,omitempty"`
	LowerCorner string `xml:"ows:LowerCorner"`
	UpperCorner string `xml:"ows:UpperCorner"`
}

// wktPolygonCorners pulls the lower-left and upper-right corners back out
// of a rectangular WKT polygon.
func wktPolygonCorners(wkt string) (lower, upper string, ok bool) {
	open := strings.Index(wkt, "((")
	closing := strings.Index(wkt, "))")
	if open < 0 || closing <= open {
		return "", "", false
	}
	points := strings.Split(wkt[open+2:closing], ",")
	if len(points) != 5 {
		return "", "", false
	}
	return strings.TrimSpace(points[0]), strings.TrimSpace(points[2]), true
}

// Build renders the catalog XML record for one layer.
func (b *Builder) Build(rec harvest.CatalogRecord) (string, error) {
	doc := cswRecord{
		CswNS:       "http://www.opengis.net/cat/csw/2.0.2",
		DcNS:        "http://purl.org/dc/elements/1.1/",
		DctNS:       "http://purl.org/dc/terms/",
		OwsNS:       "http://www.opengis.net/ows",
		Identifier:  rec.Identifier,
		Title:       rec.Title,
		Alternative: rec.Alternative,
		Type:        rec.Type,
		Format:      rec.Format,
		Source:      rec.Source,
		Relation:    rec.Relation,
		Subjects:    rec.Keywords,
		Abstract:    rec.Abstract,
	}
	for _, link := range rec.Links {
		doc.References = append(doc.References, cswLink{Scheme: link.Protocol, URL: link.URL})
	}
	if rec.WKTGeometry != "" {
		lower, upper, ok := wktPolygonCorners(rec.WKTGeometry)
		if !ok {
			return "", fmt.Errorf("malformed wkt geometry %q", rec.WKTGeometry)
		}
		box := &cswBox{LowerCorner: lower, UpperCorner: upper}
		if rec.SRS != nil {
			box.CRS = "urn:ogc:def:crs:EPSG::" + strconv.Itoa(*rec.SRS)
		}
		doc.Box = box
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	return xml.Header + string(out), nil
}

// AnyText flattens title, abstract and keywords into one search blob.
func (b *Builder) AnyText(title, abstract string, keywords ...string) string {
	parts := make([]string, 0, 2+len(keywords))
	if title != "" {
		parts = append(parts, title)
	}
	if abstract != "" {
		parts = append(parts, abstract)
	}
	for _, kw := range keywords {
		if kw != "" {
			parts = append(parts, kw)
		}
	}
	return strings.Join(parts, " ")
}
