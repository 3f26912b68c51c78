package nhc

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-plots-service/internal/domain"
)

// ATCF deck column positions (comma separated, fields padded with spaces).
const (
	colBasin = 0
	colCY    = 1
	colIssue = 2
	colTech  = 4
	colTau   = 5
	colLat   = 6
	colLon   = 7
	colVmax  = 8
	colMSLP  = 9
	colType  = 10
	colName  = 27

	minDeckColumns = colLon + 1
)

// deckRow is one ATCF a-deck or b-deck line.
type deckRow struct {
	Basin  string
	Number string
	Issue  time.Time
	Tech   string
	Tau    int
	Lat    float64
	Lon    float64
	Vmax   float64
	MSLP   float64
	Type   string
	Name   string
}

// parseDeck reads every line of an ATCF deck. Malformed lines are skipped
// and counted; only read errors are returned.
func parseDeck(r io.Reader) ([]deckRow, int, error) {
	var rows []deckRow
	skipped := 0

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		row, err := parseDeckLine(line)
		if err != nil {
			skipped++
			continue
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("read deck: %w", err)
	}
	return rows, skipped, nil
}

func parseDeckLine(line string) (deckRow, error) {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) < minDeckColumns {
		return deckRow{}, fmt.Errorf("deck line has %d columns", len(fields))
	}

	issue, err := time.Parse(domain.IssueLayout, fields[colIssue])
	if err != nil {
		return deckRow{}, fmt.Errorf("deck issue time %q: %w", fields[colIssue], err)
	}
	tau, err := strconv.Atoi(fields[colTau])
	if err != nil {
		return deckRow{}, fmt.Errorf("deck tau %q: %w", fields[colTau], err)
	}
	lat, err := parseTenths(fields[colLat], 'N', 'S')
	if err != nil {
		return deckRow{}, err
	}
	lon, err := parseTenths(fields[colLon], 'E', 'W')
	if err != nil {
		return deckRow{}, err
	}

	row := deckRow{
		Basin:  strings.ToUpper(fields[colBasin]),
		Number: fields[colCY],
		Issue:  issue.UTC(),
		Tech:   strings.ToUpper(fields[colTech]),
		Tau:    tau,
		Lat:    lat,
		Lon:    lon,
		Vmax:   optionalField(fields, colVmax),
		MSLP:   optionalField(fields, colMSLP),
	}
	if len(fields) > colType {
		row.Type = strings.ToUpper(fields[colType])
	}
	if len(fields) > colName {
		row.Name = fields[colName]
	}
	return row, nil
}

// parseTenths decodes ATCF coordinates such as "153N" or "564W" (tenths of a
// degree with a hemisphere suffix). The negative hemisphere is returned below zero.
func parseTenths(s string, pos, neg byte) (float64, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("deck coordinate %q", s)
	}
	hemi := s[len(s)-1]
	v, err := strconv.Atoi(s[:len(s)-1])
	if err != nil {
		return 0, fmt.Errorf("deck coordinate %q: %w", s, err)
	}
	deg := float64(v) / 10
	switch hemi {
	case pos:
		return deg, nil
	case neg:
		return -deg, nil
	default:
		return 0, fmt.Errorf("deck coordinate %q: hemisphere %c", s, hemi)
	}
}

// optionalField parses a numeric column, treating absent, blank and
// non-positive values as missing (0).
func optionalField(fields []string, col int) float64 {
	if col >= len(fields) {
		return 0
	}
	v, err := strconv.ParseFloat(fields[col], 64)
	if err != nil || v <= 0 {
		return 0
	}
	return v
}

// bestTrackFromRows keeps one fix per synoptic time (the first wind-radii row)
// sorted oldest first, and takes the newest non-empty storm name.
func bestTrackFromRows(stormID string, rows []deckRow) domain.BestTrack {
	byTime := make(map[time.Time]bool)
	track := domain.BestTrack{StormID: stormID}
	for _, r := range rows {
		if byTime[r.Issue] {
			continue
		}
		byTime[r.Issue] = true
		track.Points = append(track.Points, domain.TrackPoint{
			Time:        r.Issue,
			Lat:         r.Lat,
			Lon:         r.Lon,
			VmaxKt:      r.Vmax,
			PressureHPa: r.MSLP,
			Type:        r.Type,
		})
		if r.Name != "" {
			track.Name = r.Name
		}
	}
	sort.Slice(track.Points, func(i, j int) bool { return track.Points[i].Time.Before(track.Points[j].Time) })
	return track
}

// ignoredTechs are a-deck entries that are not forecasts.
var ignoredTechs = map[string]bool{"CARQ": true, "WRNG": true, "BEST": true}

// operationalFromRows groups a-deck rows into the nested model -> issue -> run
// shape. Duplicate (tech, issue, tau) rows keep the first.
func operationalFromRows(rows []deckRow) domain.OperationalForecasts {
	type stepKey struct {
		tech, issue string
		tau         int
	}
	seen := make(map[stepKey]bool)
	ops := make(domain.OperationalForecasts)

	for _, r := range rows {
		if ignoredTechs[r.Tech] || r.Tau < 0 {
			continue
		}
		issue := r.Issue.Format(domain.IssueLayout)
		key := stepKey{r.Tech, issue, r.Tau}
		if seen[key] {
			continue
		}
		seen[key] = true

		runs, ok := ops[r.Tech]
		if !ok {
			runs = make(map[string]domain.ModelRun)
			ops[r.Tech] = runs
		}
		run := runs[issue]
		run.FHR = append(run.FHR, r.Tau)
		run.Lat = append(run.Lat, r.Lat)
		run.Lon = append(run.Lon, r.Lon)
		run.Vmax = append(run.Vmax, r.Vmax)
		run.MSLP = append(run.MSLP, r.MSLP)
		run.Type = append(run.Type, r.Type)
		runs[issue] = run
	}
	return ops
}
