package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoharbor/mapharvest/internal/harvest"
)

func TestBuildRecord(t *testing.T) {
	t.Parallel()

	srs := 4326
	b := NewBuilder()
	xmlDoc, err := b.Build(harvest.CatalogRecord{
		Identifier:  "urn:uuid:1234",
		Source:      "http://example.com/wms",
		Links:       []harvest.Link{{Protocol: "OGC:WMS", URL: "http://example.com/wms"}},
		Format:      "OGC:WMS",
		Type:        "dataset",
		Relation:    "urn:uuid:5678",
		Title:       "Road network",
		Alternative: "roads",
		Abstract:    "All the roads",
		Keywords:    []string{"transport"},
		WKTGeometry: "POLYGON((-10.00 -5.00, -10.00 5.00, 10.00 5.00, 10.00 -5.00, -10.00 -5.00))",
		SRS:         &srs,
	})
	require.NoError(t, err)

	assert.Contains(t, xmlDoc, "<dc:identifier>urn:uuid:1234</dc:identifier>")
	assert.Contains(t, xmlDoc, "<dc:title>Road network</dc:title>")
	assert.Contains(t, xmlDoc, "<dct:alternative>roads</dct:alternative>")
	assert.Contains(t, xmlDoc, "<dc:subject>transport</dc:subject>")
	assert.Contains(t, xmlDoc, `scheme="OGC:WMS"`)
	assert.Contains(t, xmlDoc, "<ows:LowerCorner>-10.00 -5.00</ows:LowerCorner>")
	assert.Contains(t, xmlDoc, "<ows:UpperCorner>10.00 5.00</ows:UpperCorner>")
	assert.Contains(t, xmlDoc, "urn:ogc:def:crs:EPSG::4326")
}

func TestBuildRejectsMalformedWKT(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	_, err := b.Build(harvest.CatalogRecord{WKTGeometry: "POLYGON(broken"})
	require.Error(t, err)
}

func TestAnyText(t *testing.T) {
	t.Parallel()

	b := NewBuilder()
	assert.Equal(t, "Roads All the roads transport",
		b.AnyText("Roads", "All the roads", "transport"))
	assert.Equal(t, "Roads", b.AnyText("Roads", "", ""))
}
