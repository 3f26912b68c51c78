package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ModelRun is one model run in the aggregator's native layout: parallel
// arrays indexed by forecast step. MSLP and Type may be empty.
type ModelRun struct {
	FHR  []int
	Lat  []float64
	Lon  []float64
	Vmax []float64
	MSLP []float64
	Type []string
}

// OperationalForecasts is the aggregator's nested shape:
// model id -> issue time (IssueLayout) -> run.
type OperationalForecasts map[string]map[string]ModelRun

// StatsRow is one parsed line of a hazard-model stats file, keyed by the
// normalised label, e.g. "hour", "long", "max_surf_wind_(knots)".
type StatsRow map[string]float64

// statsRenames maps hazard-model labels onto ForecastPoint columns.
var statsRenames = map[string]string{
	"hour":                  "fhr",
	"long":                  "lon",
	"max_surf_wind_(knots)": "wind_kt",
	"min_press_(hpa)":       "pressure_hpa",
}

var requiredStatsColumns = []string{"fhr", "lon", "lat", "wind_kt"}

// FlattenOperational converts the nested aggregator shape into records sorted
// by model then issue time. A malformed run is dropped and reported in the
// joined error; the remaining records are still returned.
func FlattenOperational(stormID string, ops OperationalForecasts) ([]ForecastRecord, error) {
	var records []ForecastRecord
	var errs []error

	for model, runs := range ops {
		for issue, run := range runs {
			rec, err := recordFromRun(stormID, model, issue, run)
			if err != nil {
				errs = append(errs, fmt.Errorf("flatten %s %s: %w", model, issue, err))
				continue
			}
			records = append(records, rec)
		}
	}

	sortRecords(records)
	return records, errors.Join(errs...)
}

func recordFromRun(stormID, model, issue string, run ModelRun) (ForecastRecord, error) {
	issueTime, err := time.Parse(IssueLayout, issue)
	if err != nil {
		return ForecastRecord{}, fmt.Errorf("%w: issue time %q", ErrInvalidRecord, issue)
	}

	n := len(run.FHR)
	if len(run.Lat) != n || len(run.Lon) != n || len(run.Vmax) != n {
		return ForecastRecord{}, fmt.Errorf("%w: column lengths fhr=%d lat=%d lon=%d vmax=%d",
			ErrInvalidRecord, n, len(run.Lat), len(run.Lon), len(run.Vmax))
	}
	if len(run.MSLP) != 0 && len(run.MSLP) != n {
		return ForecastRecord{}, fmt.Errorf("%w: column lengths fhr=%d mslp=%d", ErrInvalidRecord, n, len(run.MSLP))
	}

	points := make([]ForecastPoint, 0, n)
	for i := range n {
		p := ForecastPoint{
			FHR:    run.FHR[i],
			Lat:    run.Lat[i],
			Lon:    normalizeLon(run.Lon[i]),
			WindKt: nanToZero(run.Vmax[i]),
		}
		if len(run.MSLP) == n {
			p.PressureHPa = nanToZero(run.MSLP[i])
		}
		points = append(points, p)
	}

	rec := ForecastRecord{
		StormID:   stormID,
		ModelID:   strings.ToUpper(model),
		IssueTime: issueTime.UTC(),
		Source:    SourceATCF,
		Points:    dedupePoints(points),
	}
	return rec, rec.Validate()
}

// RecordFromStats builds a record from parsed hazard-model rows. Every row
// must carry the fhr, lon, lat and wind_kt columns after renaming.
func RecordFromStats(stormID, modelID string, cycle time.Time, rows []StatsRow) (ForecastRecord, error) {
	points := make([]ForecastPoint, 0, len(rows))
	for i, raw := range rows {
		row := renameStatsColumns(raw)
		for _, col := range requiredStatsColumns {
			if _, ok := row[col]; !ok {
				return ForecastRecord{}, fmt.Errorf("%w: row %d: expected column %q", ErrInvalidRecord, i, col)
			}
		}
		points = append(points, ForecastPoint{
			FHR:         int(math.Round(row["fhr"])),
			Lat:         row["lat"],
			Lon:         normalizeLon(row["lon"]),
			WindKt:      row["wind_kt"],
			PressureHPa: row["pressure_hpa"],
		})
	}

	rec := ForecastRecord{
		StormID:   stormID,
		ModelID:   strings.ToUpper(modelID),
		IssueTime: cycle.UTC(),
		Source:    SourceHAFS,
		Points:    dedupePoints(points),
	}
	return rec, rec.Validate()
}

func renameStatsColumns(row StatsRow) StatsRow {
	out := make(StatsRow, len(row))
	for k, v := range row {
		if renamed, ok := statsRenames[k]; ok {
			k = renamed
		}
		out[k] = v
	}
	return out
}

// dedupePoints sorts by forecast hour and keeps the first point for each hour.
func dedupePoints(points []ForecastPoint) []ForecastPoint {
	sort.SliceStable(points, func(i, j int) bool { return points[i].FHR < points[j].FHR })
	out := points[:0]
	for i, p := range points {
		if i > 0 && p.FHR == points[i-1].FHR {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Reconcile merges record sets from any number of sources. Records sharing a
// key keep the first occurrence; the result is sorted by storm, model, issue.
func Reconcile(sets ...[]ForecastRecord) []ForecastRecord {
	seen := make(map[RecordKey]bool)
	var out []ForecastRecord
	for _, set := range sets {
		for _, rec := range set {
			key := rec.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, rec)
		}
	}
	sortRecords(out)
	return out
}

// LatestByModel keeps the newest run of every model, sorted by model id.
func LatestByModel(records []ForecastRecord) []ForecastRecord {
	latest := make(map[string]ForecastRecord)
	for _, rec := range records {
		cur, ok := latest[rec.ModelID]
		if !ok || rec.IssueTime.After(cur.IssueTime) {
			latest[rec.ModelID] = rec
		}
	}
	out := make([]ForecastRecord, 0, len(latest))
	for _, rec := range latest {
		out = append(out, rec)
	}
	sortRecords(out)
	return out
}

// LatestOfficial picks the newest valid OFCL run out of decoded forecasts.
func LatestOfficial(stormID string, ops OperationalForecasts) (ForecastRecord, error) {
	runs, ok := ops[OfficialModelID]
	if !ok || len(runs) == 0 {
		return ForecastRecord{}, fmt.Errorf("%s: %w", stormID, ErrNoForecast)
	}
	records, _ := FlattenOperational(stormID, OperationalForecasts{OfficialModelID: runs})
	if len(records) == 0 {
		return ForecastRecord{}, fmt.Errorf("%s: %w", stormID, ErrNoForecast)
	}
	return records[len(records)-1], nil
}

// ForStorm returns the records for one canonical storm id.
func ForStorm(records []ForecastRecord, stormID string) []ForecastRecord {
	var out []ForecastRecord
	for _, rec := range records {
		if strings.EqualFold(rec.StormID, stormID) {
			out = append(out, rec)
		}
	}
	return out
}

// MarkObserved returns a copy of rec with Observed set on points whose valid
// time is not after lastObserved.
func MarkObserved(rec ForecastRecord, lastObserved time.Time) ForecastRecord {
	points := make([]ForecastPoint, len(rec.Points))
	for i, p := range rec.Points {
		p.Observed = !lastObserved.IsZero() && !rec.ValidTime(p).After(lastObserved)
		points[i] = p
	}
	rec.Points = points
	return rec
}

func sortRecords(records []ForecastRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.StormID != b.StormID {
			return a.StormID < b.StormID
		}
		if a.ModelID != b.ModelID {
			return a.ModelID < b.ModelID
		}
		return a.IssueTime.Before(b.IssueTime)
	})
}

func nanToZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
