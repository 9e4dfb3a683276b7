// Package esri reads ArcGIS REST service-directory, map-service and
// image-service descriptors over HTTP.
package esri

// Directory is a service-directory listing (the root or one folder).
type Directory struct {
	Folders  []string       `json:"folders"`
	Services []ServiceEntry `json:"services"`
}

// ServiceEntry is one leaf advertised by a directory listing. Name may
// carry a folder prefix ("folder/service").
type ServiceEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// LeafURL resolves the entry against the /rest/services root, with a
// trailing slash so the /MapServer/ and /ImageServer/ substring filters
// apply uniformly.
func (e ServiceEntry) LeafURL(root string) string {
	return root + "/" + e.Name + "/" + e.Type + "/"
}

// SpatialReference identifies a coordinate system either by well-known id
// or by well-known text.
type SpatialReference struct {
	WKID int    `json:"wkid"`
	WKT  string `json:"wkt"`
}

// Extent is a service or layer bounding box in the descriptor's own
// spatial reference.
type Extent struct {
	XMin             float64           `json:"xmin"`
	YMin             float64           `json:"ymin"`
	XMax             float64           `json:"xmax"`
	YMax             float64           `json:"ymax"`
	SpatialReference *SpatialReference `json:"spatialReference"`
}

// LayerRef is the layer summary embedded in a map-service descriptor.
type LayerRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MapService is the descriptor of one MapServer endpoint.
type MapService struct {
	MapName             string    `json:"mapName"`
	Description         string    `json:"description"`
	ServiceDescription  string    `json:"serviceDescription"`
	SupportedExtensions string    `json:"supportedExtensions"`
	FullExtent          *Extent   `json:"fullExtent"`
	Extent              *Extent   `json:"extent"`
	Layers              []LayerRef `json:"layers"`
}

// Ext returns the preferred extent: the plain extent when present,
// otherwise the full extent.
func (m *MapService) Ext() *Extent {
	if m.Extent != nil {
		return m.Extent
	}
	return m.FullExtent
}

// ServiceError is the error object some remotes embed inside an otherwise
// well-formed layer descriptor.
type ServiceError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MapLayer is one detailed layer descriptor from the /layers resource.
type MapLayer struct {
	ID          int           `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Extent      *Extent       `json:"extent"`
	Err         *ServiceError `json:"error"`
}

// ImageService is the descriptor of one ImageServer endpoint.
type ImageService struct {
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	ServiceDescription string  `json:"serviceDescription"`
	Extent             *Extent `json:"extent"`
}
