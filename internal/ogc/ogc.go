// Package ogc implements capabilities-document clients for the OGC family
// of protocols (WMS, WMTS) and OSGeo TMS. Each client performs one bounded
// GET and parses the XML; a parse failure means the endpoint does not
// speak that protocol.
package ogc

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// httpGetter issues the capability GETs shared by the three clients.
type httpGetter struct {
	http   *http.Client
	logger *zap.Logger
}

func newGetter(timeout time.Duration, logger *zap.Logger) httpGetter {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return httpGetter{
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (g httpGetter) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", endpoint, err)
	}
	q := u.Query()
	for k, vs := range params {
		if q.Get(k) == "" {
			q.Set(k, vs[0])
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", u.String(), err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %d", u.String(), resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// rootName returns the local name of the document's root element.
func rootName(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("no root element: %w", err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// epsgCode extracts a numeric EPSG-like code from identifiers such as
// "EPSG:4326", "urn:ogc:def:crs:EPSG::3857" or a bare "4326". Other
// authorities (e.g. "CRS:84") report false.
func epsgCode(ident string) (int, bool) {
	s := strings.TrimSpace(ident)
	if idx := strings.LastIndexByte(s, ':'); idx >= 0 {
		authority := strings.ToUpper(s[:idx])
		if !strings.Contains(authority, "EPSG") {
			return 0, false
		}
		s = s[idx+1:]
	}
	code, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return code, true
}
