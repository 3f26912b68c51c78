package domain

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConeRadiusNM(t *testing.T) {
	assert.Equal(t, 0.0, ConeRadiusNM("AL", 0))
	assert.Equal(t, 39.0, ConeRadiusNM("AL", 24))
	assert.Equal(t, 205.0, ConeRadiusNM("AL", 120))
	assert.Equal(t, 205.0, ConeRadiusNM("AL", 168), "clamped past the horizon")
	assert.InDelta(t, 32.5, ConeRadiusNM("AL", 18), 1e-9, "interpolated")
	assert.Equal(t, 158.0, ConeRadiusNM("EP", 120))
	assert.Equal(t, ConeRadiusNM("AL", 72), ConeRadiusNM("WP", 72), "unknown basin falls back to Atlantic")
}

func TestForecastCone(t *testing.T) {
	rec := ForecastRecord{
		StormID:   testStormID,
		ModelID:   "OFCL",
		IssueTime: testIssueTime,
		Points: []ForecastPoint{
			{FHR: 0, Lat: 18.0, Lon: -63.0},
			{FHR: 24, Lat: 21.0, Lon: -65.0},
			{FHR: 48, Lat: 25.0, Lon: -66.0},
			{FHR: 72, Lat: 29.0, Lon: -65.0},
		},
	}

	cone, err := ForecastCone(rec, "AL")
	require.NoError(t, err)
	require.Len(t, cone, 1)

	ring := cone[0]
	assert.True(t, ring.Closed())
	assert.InDelta(t, -63.0, ring[0][0], 1e-6, "zero radius at the initial position")
	assert.InDelta(t, 18.0, ring[0][1], 1e-6, "zero radius at the initial position")

	for _, p := range rec.Points[1:] {
		assert.True(t, planar.PolygonContains(cone, orb.Point{p.Lon, p.Lat}),
			"forecast point %v should be inside the cone", p)
	}
	assert.False(t, planar.PolygonContains(cone, orb.Point{-40.0, 25.0}))

	// The cone widens with forecast hour.
	bound := cone.Bound()
	assert.Greater(t, bound.Max[1], 29.0)
}

func TestForecastCone_TooShort(t *testing.T) {
	rec := ForecastRecord{Points: []ForecastPoint{{FHR: 0, Lat: 18, Lon: -63}, {FHR: 144, Lat: 30, Lon: -60}}}
	_, err := ForecastCone(rec, "AL")
	require.ErrorIs(t, err, ErrConeTooShort)
}

func TestPlotExtent(t *testing.T) {
	best := BestTrack{Points: []TrackPoint{{Lat: 15, Lon: -55}, {Lat: 17, Lon: -60}}}
	rec := ForecastRecord{Points: []ForecastPoint{{Lat: 25, Lon: -70}}}

	bound, ok := PlotExtent(ExtentPadDegrees, TrackLine(best), ForecastLine(rec))
	require.True(t, ok)
	assert.Equal(t, orb.Point{-75, 10}, bound.Min)
	assert.Equal(t, orb.Point{-50, 30}, bound.Max)

	_, ok = PlotExtent(ExtentPadDegrees)
	assert.False(t, ok)

	polar, ok := PlotExtent(ExtentPadDegrees, orb.LineString{{0, 88}})
	require.True(t, ok)
	assert.Equal(t, 90.0, polar.Max[1])
}
