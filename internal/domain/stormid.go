package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// canonicalIDRe matches the ATCF form, e.g. "AL092024".
	canonicalIDRe = regexp.MustCompile(`^([A-Za-z]{2})(\d{2})(\d{4})$`)

	// shortIDRe matches HAFS file prefixes with an optional storm name,
	// e.g. "09l" or "ernesto05l".
	shortIDRe = regexp.MustCompile(`^[A-Za-z]*?(\d{2})([A-Za-z])$`)
)

var shortBasins = map[string]string{
	"l": "AL",
	"e": "EP",
	"c": "CP",
	"w": "WP",
	"a": "IO",
	"b": "IO",
	"s": "SH",
	"p": "SH",
}

var knownBasins = map[string]bool{"AL": true, "EP": true, "CP": true, "WP": true, "IO": true, "SH": true}

// NormalizeStormID returns the canonical ATCF id for raw. year is only used
// for the short form, which carries no year.
func NormalizeStormID(raw string, year int) (string, error) {
	id := strings.TrimSpace(raw)

	if m := canonicalIDRe.FindStringSubmatch(id); m != nil {
		basin := strings.ToUpper(m[1])
		if !knownBasins[basin] {
			return "", fmt.Errorf("normalize storm id %q: unknown basin %s", raw, basin)
		}
		return basin + m[2] + m[3], nil
	}

	if m := shortIDRe.FindStringSubmatch(id); m != nil {
		basin, ok := shortBasins[strings.ToLower(m[2])]
		if !ok {
			return "", fmt.Errorf("normalize storm id %q: unknown basin letter %s", raw, m[2])
		}
		if year < 1000 || year > 9999 {
			return "", fmt.Errorf("normalize storm id %q: year %d out of range", raw, year)
		}
		return fmt.Sprintf("%s%s%04d", basin, m[1], year), nil
	}

	return "", fmt.Errorf("normalize storm id %q: unrecognized format", raw)
}

// BasinOf returns the two-letter basin of a canonical id.
func BasinOf(stormID string) string {
	if len(stormID) < 2 {
		return ""
	}
	return strings.ToUpper(stormID[:2])
}
