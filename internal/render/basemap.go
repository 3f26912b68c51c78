package render

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/geojson"
)

// Basemap holds coastline and border lines drawn under every plot.
type Basemap struct {
	lines []orb.LineString
}

// LoadBasemap reads a GeoJSON FeatureCollection of lines or polygons.
func LoadBasemap(path string) (*Basemap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read basemap: %w", err)
	}
	return ParseBasemap(data)
}

// ParseBasemap decodes GeoJSON bytes into a basemap. Point features are ignored.
func ParseBasemap(data []byte) (*Basemap, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode basemap: %w", err)
	}
	b := &Basemap{}
	for _, f := range fc.Features {
		b.lines = appendLines(b.lines, f.Geometry)
	}
	return b, nil
}

// Lines returns the basemap clipped to bound. A nil basemap has no lines.
func (b *Basemap) Lines(bound orb.Bound) []orb.LineString {
	if b == nil {
		return nil
	}
	var out []orb.LineString
	for _, ls := range b.lines {
		if !ls.Bound().Intersects(bound) {
			continue
		}
		for _, part := range clip.LineString(bound, ls) {
			if len(part) >= 2 {
				out = append(out, part)
			}
		}
	}
	return out
}

func appendLines(out []orb.LineString, g orb.Geometry) []orb.LineString {
	switch g := g.(type) {
	case orb.LineString:
		out = append(out, g)
	case orb.MultiLineString:
		out = append(out, g...)
	case orb.Ring:
		out = append(out, orb.LineString(g))
	case orb.Polygon:
		for _, r := range g {
			out = append(out, orb.LineString(r))
		}
	case orb.MultiPolygon:
		for _, p := range g {
			out = appendLines(out, p)
		}
	case orb.Collection:
		for _, child := range g {
			out = appendLines(out, child)
		}
	}
	return out
}
