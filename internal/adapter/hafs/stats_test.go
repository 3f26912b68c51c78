package hafs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStats(t *testing.T) {
	rows, err := ParseStats(strings.NewReader(statsFile))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	row := rows[0]
	assert.InDelta(t, 0, row["hour"], 0)
	assert.InDelta(t, -61.5, row["long"], 1e-9)
	assert.InDelta(t, 17.2, row["lat"], 1e-9)
	assert.InDelta(t, 1006.51, row["min_press_(hpa)"], 1e-9)
	assert.InDelta(t, 37.59, row["max_surf_wind_(knots)"], 1e-9)
}

func TestParseStats_WideValues(t *testing.T) {
	line := "HOUR: 126.0 LONG: -101.500 LAT: -17.200 MIN PRESS (hPa):  1006.51 MAX SURF WIND (KNOTS): 137.59"
	rows, err := ParseStats(strings.NewReader(line))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 126, rows[0]["hour"], 0)
	assert.InDelta(t, -101.5, rows[0]["long"], 1e-9)
	assert.InDelta(t, 137.59, rows[0]["max_surf_wind_(knots)"], 1e-9)
}

func TestParseStats_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "non-numeric value",
			in:   "HOUR:   x.0 LONG:  -61.500 LAT:  17.200 MIN PRESS (hPa):  1006.51 MAX SURF WIND (KNOTS):  37.59",
			want: "line 1",
		},
		{
			name: "missing colon",
			in:   "\nHOUR    0.0 LONG:  -61.500 LAT:  17.200 MIN PRESS (hPa):  1006.51 MAX SURF WIND (KNOTS):  37.59",
			want: "line 2",
		},
		{
			name: "truncated line",
			in:   "HOUR:   0.0 LONG:  -61.500",
			want: "line 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStats(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseStats_Empty(t *testing.T) {
	rows, err := ParseStats(strings.NewReader("\n\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
