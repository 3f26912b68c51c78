package hafs

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-plots-service/internal/domain"
)

// statsColumns are the fixed-width [start, end) slices of a stats.short line.
// An end of -1 runs to the end of the line.
var statsColumns = [][2]int{
	{0, 11},  // HOUR:
	{12, 26}, // LONG:
	{27, 39}, // LAT:
	{40, 65}, // MIN PRESS (hPa):
	{66, -1}, // MAX SURF WIND (KNOTS):
}

// ParseStats decodes a stats.short file. Every non-blank line must carry the
// five "label: value" columns; labels are lower-cased with spaces replaced
// by underscores.
func ParseStats(r io.Reader) ([]domain.StatsRow, error) {
	var rows []domain.StatsRow

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		row, err := parseStatsLine(line)
		if err != nil {
			return nil, fmt.Errorf("parse stats line %d: %w", lineNo, err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}
	return rows, nil
}

func parseStatsLine(line string) (domain.StatsRow, error) {
	row := make(domain.StatsRow, len(statsColumns))
	for _, col := range statsColumns {
		start, end := col[0], col[1]
		if end < 0 || end > len(line) {
			end = len(line)
		}
		if start >= end {
			return nil, fmt.Errorf("line too short for column at %d: %q", start, line)
		}

		label, value, ok := strings.Cut(line[start:end], ":")
		if !ok {
			return nil, fmt.Errorf("column %q has no label", line[start:end])
		}
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", key, err)
		}
		row[key] = v
	}
	return row, nil
}
