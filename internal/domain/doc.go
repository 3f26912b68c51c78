// Package domain models tropical-cyclone tracks and forecasts from the two
// upstream feeds and reconciles them into one forecast-record shape.
//
// # Data Sources
//
// Active storms, best tracks and operational model forecasts come from the
// National Hurricane Center. The active list is the JSON document at
// https://www.nhc.noaa.gov/CurrentStorms.json; tracks and forecasts come from
// the ATCF decks under https://ftp.nhc.noaa.gov/atcf/ (b-decks for the best
// track, gzipped a-decks for every model's forecast). The adapter decodes the
// a-deck into [OperationalForecasts]: model id, then issue time, then parallel
// arrays of forecast hour, position and intensity.
//
// Hazard-model forecasts come from the NOAA HAFS production directory on
// NOMADS. Each cycle directory lists one "stats.short" text file per storm.
// The file is fixed-width, one forecast hour per line:
//
//	HOUR:   0.0 LONG:  -61.500 LAT:  17.200 MIN PRESS (hPa):  1006.51 MAX SURF WIND (KNOTS):  37.59
//
// The adapter slices each line into key/value chunks and hands them over as
// [StatsRow] maps, which [RecordFromStats] turns into a [ForecastRecord].
//
// # Storm Identifiers
//
// The canonical identifier is the ATCF form: two-letter basin, two-digit
// cyclone number, four-digit year, e.g. "AL092024". HAFS files use a short
// lower-case form such as "09l", sometimes prefixed with the storm name
// ("ernesto05l"). [NormalizeStormID] maps both to the canonical form using the
// cycle year. Basin letters:
//
//	l -> AL (North Atlantic)     e -> EP (East Pacific)   c -> CP (Central Pacific)
//	w -> WP (West Pacific)       a, b -> IO (North Indian) s, p -> SH (Southern Hemisphere)
//
// # Units
//
// Positions are decimal degrees, longitudes normalised to [-180, 180).
// Winds are knots, pressures hPa, forecast hours are whole hours after the
// issue time. A record is keyed by [RecordKey]: storm, model and issue time.
//
// # Saffir-Simpson Colours
//
// Track markers are coloured by the Saffir-Simpson Hurricane Wind Scale bands
// in knots: <34 depression, <64 storm, then categories 1 to 5 at 64, 83, 96,
// 113 and 137. See [CategoryForWind].
package domain
