// Package geo provides the spatial helpers used during layer
// normalization: spherical-mercator inversion, bounding-box to WKT
// formatting, coordinate-order repair and float sanitizing.
package geo

import (
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"
)

// mercatorExtent is the half-width of the spherical mercator plane in meters.
const mercatorExtent = 20037508.34

// floatCap guards against corrupted or placeholder sentinel values seen in
// real feeds (e.g. 1e10 "no data" markers).
const floatCap = 999999999

// BBox is a WGS84 bounding box as (x0, y0, x1, y1) degrees.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// DefaultBBox is the near-global extent assigned when a source omits a
// bounding box, so every layer stays renderable.
var DefaultBBox = BBox{X0: -179.0, Y0: -89.0, X1: 179.0, Y1: 89.0}

// InverseMercator converts a spherical-mercator x/y pair to lon/lat degrees.
func InverseMercator(x, y float64) (lon, lat float64) {
	lon = (x / mercatorExtent) * 180
	lat = (y / mercatorExtent) * 180
	lat = 180 / math.Pi * (2*math.Atan(math.Exp(lat*math.Pi/180)) - math.Pi/2)
	return lon, lat
}

// MercatorToLL converts a mercator bounding box to WGS84 degrees by
// inverting both corners.
func MercatorToLL(b BBox) BBox {
	minLon, minLat := InverseMercator(b.X0, b.Y0)
	maxLon, maxLat := InverseMercator(b.X1, b.Y1)
	return BBox{X0: minLon, Y0: minLat, X1: maxLon, Y1: maxLat}
}

// BBoxToWKT renders a bounding box as a closed five-point OGC WKT polygon,
// coordinates formatted to two decimal places. Values may be numeric or
// numeric strings; anything unparseable is an error the caller must guard.
func BBoxToWKT(coords ...any) (string, error) {
	if len(coords) != 4 {
		return "", fmt.Errorf("bbox needs 4 coordinates, got %d", len(coords))
	}
	vals := make([]float64, 4)
	for i, c := range coords {
		v, err := toFloat(c)
		if err != nil {
			return "", fmt.Errorf("bbox coordinate %d: %w", i, err)
		}
		vals[i] = v
	}
	minx, miny, maxx, maxy := vals[0], vals[1], vals[2], vals[3]
	return fmt.Sprintf("POLYGON((%.2f %.2f, %.2f %.2f, %.2f %.2f, %.2f %.2f, %.2f %.2f))",
		minx, miny, minx, maxy, maxx, maxy, maxx, miny, minx, miny), nil
}

// WKT renders the box itself as a WKT polygon.
func (b BBox) WKT() string {
	s, _ := BBoxToWKT(b.X0, b.Y0, b.X1, b.Y1)
	return s
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("not numeric: %q", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not numeric: %v", v)
	}
}

// FlipCoords repairs a swapped min/max pair: if the first value is greater
// than the second the pair is swapped and the repair logged. Applying it to
// an already-ordered pair is a no-op.
func FlipCoords(c1, c2 float64, logger *zap.Logger) (float64, float64) {
	if c1 > c2 {
		if logger != nil {
			logger.Warn("flipping swapped coordinates",
				zap.Float64("min", c1), zap.Float64("max", c2))
		}
		return c2, c1
	}
	return c1, c2
}

// Repair orders both axes of a bounding box independently.
func (b BBox) Repair(logger *zap.Logger) BBox {
	b.X0, b.X1 = FlipCoords(b.X0, b.X1, logger)
	b.Y0, b.Y1 = FlipCoords(b.Y0, b.Y1, logger)
	return b
}

// SanitizeFloat parses s as a float, rejecting unparseable input and any
// magnitude above 999,999,999. The boolean reports whether a usable value
// was produced.
func SanitizeFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if math.Abs(v) > floatCap {
		return 0, false
	}
	return v, true
}

// SanitizeValue applies the same guard to loosely typed JSON values:
// numbers pass the cap check, strings go through SanitizeFloat, anything
// else reports false.
func SanitizeValue(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.Abs(t) > floatCap {
			return 0, false
		}
		return t, true
	case string:
		return SanitizeFloat(t)
	default:
		return SanitizeFloat(fmt.Sprintf("%v", t))
	}
}
