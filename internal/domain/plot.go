package domain

import (
	"fmt"
	"strings"
	"time"
)

// PlotKind names one rendered image variant.
type PlotKind string

const (
	PlotForecastCone PlotKind = "forecast_realtime"
	PlotTrack        PlotKind = "track"
	PlotCompare      PlotKind = "compare"
)

// DateLayout is the image-tree partition format.
const DateLayout = "2006-01-02"

// AllPlotKinds returns every kind in render order.
func AllPlotKinds() []PlotKind {
	return []PlotKind{PlotForecastCone, PlotTrack, PlotCompare}
}

// Valid reports whether k is a known kind.
func (k PlotKind) Valid() bool {
	for _, known := range AllPlotKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// ParsePlotKinds parses "all" or a comma-separated list of kinds.
func ParsePlotKinds(s string) ([]PlotKind, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return AllPlotKinds(), nil
	}
	var kinds []PlotKind
	seen := make(map[PlotKind]bool)
	for _, part := range strings.Split(s, ",") {
		k := PlotKind(strings.ToLower(strings.TrimSpace(part)))
		if k == "" {
			continue
		}
		if !k.Valid() {
			return nil, fmt.Errorf("unknown plot kind %q", part)
		}
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("no plot kinds in %q", s)
	}
	return kinds, nil
}

// ImageDate returns today's UTC partition from the package clock.
func ImageDate() string {
	return Now().Format(DateLayout)
}

// PlotEvent announces a newly stored image.
type PlotEvent struct {
	Date       string    `json:"date"`
	StormID    string    `json:"storm_id"`
	Kind       PlotKind  `json:"kind"`
	Key        string    `json:"key"`
	Bytes      int       `json:"bytes"`
	RenderedAt time.Time `json:"rendered_at"`
}
