package harvest

import (
	"regexp"
	"strings"
)

const esriRoot = "/rest/services"

var esriNameRe = regexp.MustCompile(`rest/services/(.*)/(?:MapServer|ImageServer)`)

// SanitizeEndpoint strips query and path noise from a raw URL. ESRI URLs
// are truncated right after /rest/services so the many URL variants of one
// service directory collapse to a single canonical root; anything else
// passes through unchanged.
func SanitizeEndpoint(rawURL string) string {
	if idx := strings.Index(rawURL, esriRoot); idx >= 0 {
		return rawURL[:idx+len(esriRoot)]
	}
	return rawURL
}

// EsriServiceName extracts the service path from an ESRI leaf URL, e.g.
// ".../rest/services/ecuador/data/MapServer/?f=json" yields "ecuador/data".
// URLs that do not match are returned unchanged.
func EsriServiceName(rawURL string) string {
	m := esriNameRe.FindStringSubmatch(rawURL)
	if m == nil {
		return rawURL
	}
	return m[1]
}
