package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInverseMercatorOrigin(t *testing.T) {
	t.Parallel()

	lon, lat := InverseMercator(0, 0)
	assert.InDelta(t, 0.0, lon, 1e-9)
	assert.InDelta(t, 0.0, lat, 1e-9)
}

func TestInverseMercatorKnownPoint(t *testing.T) {
	t.Parallel()

	// Full mercator extent maps back to the antimeridian.
	lon, lat := InverseMercator(20037508.34, 20037508.34)
	assert.InDelta(t, 180.0, lon, 1e-6)
	assert.InDelta(t, 85.0511, lat, 1e-3)
}

func TestMercatorToLLRoundsBothCorners(t *testing.T) {
	t.Parallel()

	b := MercatorToLL(BBox{X0: -20037508.34, Y0: -20037508.34, X1: 20037508.34, Y1: 20037508.34})
	assert.InDelta(t, -180.0, b.X0, 1e-6)
	assert.InDelta(t, 180.0, b.X1, 1e-6)
	assert.True(t, b.Y0 < b.Y1)
}

func TestBBoxToWKTClosedRing(t *testing.T) {
	t.Parallel()

	wkt, err := BBoxToWKT(-10.0, -5.0, 10.0, 5.0)
	require.NoError(t, err)
	assert.Equal(t,
		"POLYGON((-10.00 -5.00, -10.00 5.00, 10.00 5.00, 10.00 -5.00, -10.00 -5.00))",
		wkt)
}

func TestBBoxToWKTStringCoords(t *testing.T) {
	t.Parallel()

	wkt, err := BBoxToWKT("1", "2", "3", "4")
	require.NoError(t, err)
	assert.Equal(t,
		"POLYGON((1.00 2.00, 1.00 4.00, 3.00 4.00, 3.00 2.00, 1.00 2.00))",
		wkt)
}

func TestBBoxToWKTRejectsNonNumeric(t *testing.T) {
	t.Parallel()

	_, err := BBoxToWKT("a", 1.0, 2.0, 3.0)
	require.Error(t, err)
}

func TestFlipCoords(t *testing.T) {
	t.Parallel()

	logger := zap.NewNop()

	c1, c2 := FlipCoords(5, 1, logger)
	assert.Equal(t, 1.0, c1)
	assert.Equal(t, 5.0, c2)

	// Idempotent on an ordered pair.
	c1, c2 = FlipCoords(c1, c2, logger)
	assert.Equal(t, 1.0, c1)
	assert.Equal(t, 5.0, c2)
}

func TestRepairPerAxis(t *testing.T) {
	t.Parallel()

	b := BBox{X0: 10, Y0: -5, X1: -10, Y1: 5}.Repair(zap.NewNop())
	assert.Equal(t, BBox{X0: -10, Y0: -5, X1: 10, Y1: 5}, b)
}

func TestSanitizeFloat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{name: "plain decimal", input: "12.5", want: 12.5, ok: true},
		{name: "exceeds cap", input: "1e10", ok: false},
		{name: "negative beyond cap", input: "-1e10", ok: false},
		{name: "garbage", input: "abc", ok: false},
		{name: "empty", input: "", ok: false},
		{name: "at cap", input: "999999999", want: 999999999, ok: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := SanitizeFloat(tc.input)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.True(t, math.Abs(got-tc.want) < 1e-9)
			}
		})
	}
}
