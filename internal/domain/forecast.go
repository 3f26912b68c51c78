package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// IssueLayout is the ATCF issue-time key, e.g. "2024081412".
const IssueLayout = "2006010215"

// Record sources.
const (
	SourceATCF = "atcf"
	SourceHAFS = "hafs"
)

// OfficialModelID is the ATCF tech id of the NHC official forecast.
const OfficialModelID = "OFCL"

// ErrInvalidRecord is returned by Validate and wrapped by the conversions.
var ErrInvalidRecord = errors.New("invalid forecast record")

// ErrNoForecast is returned when a storm has no official forecast yet.
var ErrNoForecast = errors.New("no official forecast")

// ForecastPoint is one forecast position. Observed is set by MarkObserved
// when the point's valid time is already covered by the best track.
type ForecastPoint struct {
	FHR         int     `json:"fhr"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	WindKt      float64 `json:"wind_kt"`
	PressureHPa float64 `json:"pressure_hpa,omitempty"`
	Observed    bool    `json:"observed,omitempty"`
}

// ForecastRecord is the common forecast shape both feeds are reconciled into.
type ForecastRecord struct {
	StormID   string          `json:"storm_id"`
	ModelID   string          `json:"model_id"`
	IssueTime time.Time       `json:"issue_time"`
	Source    string          `json:"source"`
	Points    []ForecastPoint `json:"points"`
}

// RecordKey identifies a forecast run.
type RecordKey struct {
	StormID string
	ModelID string
	Issue   string // IssueLayout
}

func (k RecordKey) String() string {
	return k.StormID + "/" + k.ModelID + "/" + k.Issue
}

// Key returns the record's identity.
func (r ForecastRecord) Key() RecordKey {
	return RecordKey{StormID: r.StormID, ModelID: r.ModelID, Issue: r.IssueTime.UTC().Format(IssueLayout)}
}

// ValidTime returns the time a forecast point verifies.
func (r ForecastRecord) ValidTime(p ForecastPoint) time.Time {
	return r.IssueTime.Add(time.Duration(p.FHR) * time.Hour)
}

// Validate checks identifiers, issue time and point ordering and ranges.
func (r ForecastRecord) Validate() error {
	switch {
	case r.StormID == "":
		return fmt.Errorf("%w: missing storm id", ErrInvalidRecord)
	case r.ModelID == "":
		return fmt.Errorf("%w: missing model id", ErrInvalidRecord)
	case r.IssueTime.IsZero():
		return fmt.Errorf("%w: missing issue time", ErrInvalidRecord)
	case len(r.Points) == 0:
		return fmt.Errorf("%w: no forecast points", ErrInvalidRecord)
	}

	prev := -1
	for i, p := range r.Points {
		if p.FHR < 0 || p.FHR <= prev {
			return fmt.Errorf("%w: point %d: forecast hour %d out of order", ErrInvalidRecord, i, p.FHR)
		}
		if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
			return fmt.Errorf("%w: point %d: latitude %v out of range", ErrInvalidRecord, i, p.Lat)
		}
		if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon >= 360 {
			return fmt.Errorf("%w: point %d: longitude %v out of range", ErrInvalidRecord, i, p.Lon)
		}
		prev = p.FHR
	}
	return nil
}

// normalizeLon maps longitudes in [180, 360) onto [-180, 0).
func normalizeLon(lon float64) float64 {
	if lon >= 180 {
		return lon - 360
	}
	return lon
}
