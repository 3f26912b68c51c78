package domain

import (
	"strings"
	"time"
)

// Storm is an active cyclone as listed by the aggregator.
type Storm struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Basin          string    `json:"basin"`
	Classification string    `json:"classification"` // NHC code: TD, STD, TS, STS, HU, PTC, PC
	Lat            float64   `json:"lat"`
	Lon            float64   `json:"lon"`
	IntensityKt    float64   `json:"intensity_kt"`
	PressureHPa    float64   `json:"pressure_hpa"`
	LastUpdate     time.Time `json:"last_update"`
}

// Title is the plot heading, e.g. "HURRICANE ERNESTO".
func (s Storm) Title() string {
	label, ok := classificationLabels[strings.ToUpper(s.Classification)]
	if !ok {
		label = "TROPICAL CYCLONE"
	}
	name := strings.ToUpper(strings.TrimSpace(s.Name))
	if name == "" {
		name = s.ID
	}
	return label + " " + name
}

var classificationLabels = map[string]string{
	"TD":  "TROPICAL DEPRESSION",
	"STD": "SUBTROPICAL DEPRESSION",
	"TS":  "TROPICAL STORM",
	"STS": "SUBTROPICAL STORM",
	"HU":  "HURRICANE",
	"MH":  "MAJOR HURRICANE",
	"PTC": "POTENTIAL TROPICAL CYCLONE",
	"PC":  "POST-TROPICAL CYCLONE",
}

// TrackPoint is one best-track fix.
type TrackPoint struct {
	Time        time.Time `json:"time"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	VmaxKt      float64   `json:"vmax_kt"`
	PressureHPa float64   `json:"pressure_hpa"`
	Type        string    `json:"type"` // ATCF system type: TD, TS, HU, EX, SD, SS, LO, DB, ...
}

// BestTrack is the observed history of a storm, oldest fix first.
type BestTrack struct {
	StormID string       `json:"storm_id"`
	Name    string       `json:"name"`
	Points  []TrackPoint `json:"points"`
}

// LastObserved returns the time of the newest fix, or zero time for an empty track.
func (b BestTrack) LastObserved() time.Time {
	if len(b.Points) == 0 {
		return time.Time{}
	}
	return b.Points[len(b.Points)-1].Time
}
