package domain

import "github.com/paulmach/orb"

// ExtentPadDegrees is the margin around the plotted data.
const ExtentPadDegrees = 5.0

// TrackLine returns the best track as a line of lon/lat points.
func TrackLine(b BestTrack) orb.LineString {
	ls := make(orb.LineString, 0, len(b.Points))
	for _, p := range b.Points {
		ls = append(ls, orb.Point{p.Lon, p.Lat})
	}
	return ls
}

// ForecastLine returns the forecast positions as a line of lon/lat points.
func ForecastLine(rec ForecastRecord) orb.LineString {
	ls := make(orb.LineString, 0, len(rec.Points))
	for _, p := range rec.Points {
		ls = append(ls, orb.Point{p.Lon, p.Lat})
	}
	return ls
}

// PlotExtent returns the bounding box of all lines padded by pad degrees and
// clamped to valid latitudes. ok is false when there are no points.
func PlotExtent(pad float64, lines ...orb.LineString) (bound orb.Bound, ok bool) {
	var all orb.MultiPoint
	for _, ls := range lines {
		all = append(all, ls...)
	}
	if len(all) == 0 {
		return orb.Bound{}, false
	}

	bound = all.Bound().Pad(pad)
	bound.Min[1] = max(bound.Min[1], -90)
	bound.Max[1] = min(bound.Max[1], 90)
	return bound, true
}
