package domain

import (
	"errors"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const metersPerNauticalMile = 1852.0

// coneHours and the radii tables are the NHC cone circle radii in nautical
// miles for the current season. Radii between listed hours are interpolated.
var coneHours = []int{0, 12, 24, 36, 48, 60, 72, 96, 120}

var coneRadiiNM = map[string][]float64{
	"AL": {0, 26, 39, 53, 67, 81, 99, 145, 205},
	"EP": {0, 25, 38, 51, 65, 78, 91, 115, 158},
}

// ErrConeTooShort is returned when fewer than two points lie inside the cone horizon.
var ErrConeTooShort = errors.New("forecast too short for a cone")

// ConeRadiusNM returns the cone radius for a basin and forecast hour. Basins
// without their own table use the Atlantic radii.
func ConeRadiusNM(basin string, fhr int) float64 {
	radii, ok := coneRadiiNM[basin]
	if !ok {
		radii = coneRadiiNM["AL"]
	}
	if fhr <= 0 {
		return radii[0]
	}
	last := len(coneHours) - 1
	if fhr >= coneHours[last] {
		return radii[last]
	}
	i := sort.SearchInts(coneHours, fhr)
	if coneHours[i] == fhr {
		return radii[i]
	}
	h0, h1 := float64(coneHours[i-1]), float64(coneHours[i])
	frac := (float64(fhr) - h0) / (h1 - h0)
	return radii[i-1] + frac*(radii[i]-radii[i-1])
}

// ForecastCone builds the cone-of-uncertainty polygon around a forecast. The
// outline follows each point offset perpendicular to the track by its radius
// and closes with a half circle around the last point.
func ForecastCone(rec ForecastRecord, basin string) (orb.Polygon, error) {
	var pts []ForecastPoint
	for _, p := range rec.Points {
		if p.FHR <= coneHours[len(coneHours)-1] {
			pts = append(pts, p)
		}
	}
	if len(pts) < 2 {
		return nil, ErrConeTooShort
	}

	left := make([]orb.Point, 0, len(pts))
	right := make([]orb.Point, 0, len(pts))
	var bearing float64
	for i, p := range pts {
		center := orb.Point{p.Lon, p.Lat}
		prev := pts[max(i-1, 0)]
		next := pts[min(i+1, len(pts)-1)]
		bearing = geo.Bearing(orb.Point{prev.Lon, prev.Lat}, orb.Point{next.Lon, next.Lat})

		dist := ConeRadiusNM(basin, p.FHR) * metersPerNauticalMile
		left = append(left, geo.PointAtBearingAndDistance(center, bearing-90, dist))
		right = append(right, geo.PointAtBearingAndDistance(center, bearing+90, dist))
	}

	lastPt := pts[len(pts)-1]
	lastCenter := orb.Point{lastPt.Lon, lastPt.Lat}
	lastDist := ConeRadiusNM(basin, lastPt.FHR) * metersPerNauticalMile

	ring := make(orb.Ring, 0, 2*len(pts)+12)
	ring = append(ring, left...)
	for step := -75.0; step <= 75; step += 15 {
		ring = append(ring, geo.PointAtBearingAndDistance(lastCenter, bearing+step, lastDist))
	}
	for i := len(right) - 1; i >= 0; i-- {
		ring = append(ring, right[i])
	}
	ring = append(ring, ring[0])

	return orb.Polygon{ring}, nil
}
