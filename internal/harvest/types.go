// Package harvest defines the canonical catalog entities and the
// detection/harvesting pipeline that fills them from remote map services.
package harvest

import (
	"github.com/geoharbor/mapharvest/internal/geo"
)

// ServiceType identifies the protocol a registered endpoint speaks.
type ServiceType string

// Service types persisted on the services table.
const (
	TypeWMS             ServiceType = "OGC:WMS"
	TypeWMTS            ServiceType = "OGC:WMTS"
	TypeTMS             ServiceType = "OSGeo:TMS"
	TypeEsriMapServer   ServiceType = "ESRI:ArcGIS:MapServer"
	TypeEsriImageServer ServiceType = "ESRI:ArcGIS:ImageServer"
	TypeWorldMap        ServiceType = "WorldMap"
	TypeWarper          ServiceType = "Warper"
)

// Layer type tags. Most match the owning service type; the WorldMap and
// Warper catalogs use short historical tags.
const (
	LayerTypeWM     = "WM"
	LayerTypeWarper = "WARPER"
)

// LayerDate origin markers.
const (
	DateMined    = 0 // extracted from free text by the miner
	DateMetadata = 1 // explicit structured metadata date
)

// Service is one registered remote endpoint. Immutable after creation;
// re-detection never re-syncs its fields.
type Service struct {
	URL      string
	Type     ServiceType
	Title    string
	Abstract string
}

// Layer is the canonical normalized record for one remote layer. It is
// keyed by (Name, ServiceURL) and mutated in place on each harvest pass.
type Layer struct {
	Name       string
	ServiceURL string

	Type     string
	Title    string
	Abstract string
	URL      string
	PageURL  string

	BBox        geo.BBox
	WKTGeometry string

	AnyText string
	XML     string

	IsPublic bool

	// Active gates re-sync: an operator clears it to permanently exclude a
	// noisy layer without deleting it. Harvesters never set it.
	Active bool
}

// LayerWM carries the WorldMap-catalog fields with no equivalent in the
// other protocols.
type LayerWM struct {
	Category            string
	Username            string
	TemporalExtentStart string
	TemporalExtentEnd   string
}

// Link is one (protocol, url) pair attached to a catalog record.
type Link struct {
	Protocol string
	URL      string
}

// CatalogRecord carries everything the metadata record builder needs to
// assemble the XML document and search blob for one layer.
type CatalogRecord struct {
	Identifier  string
	Source      string
	Links       []Link
	Format      string
	Type        string
	Relation    string
	Title       string
	Alternative string
	Abstract    string
	Keywords    []string
	WKTGeometry string
	SRS         *int
}

// Capabilities is the protocol-neutral view of a WMS/WMTS/TMS capabilities
// document: service identification plus the advertised layer descriptors.
type Capabilities struct {
	Title    string
	Abstract string
	Layers   []CapLayer
}

// CapLayer is one layer entry from a capabilities document.
type CapLayer struct {
	Name      string
	Title     string
	Abstract  string
	Keywords  []string
	BBoxWGS84 *geo.BBox
	CRS       []int
}
