package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlotKinds(t *testing.T) {
	kinds, err := ParsePlotKinds("all")
	require.NoError(t, err)
	assert.Equal(t, AllPlotKinds(), kinds)

	kinds, err = ParsePlotKinds("")
	require.NoError(t, err)
	assert.Equal(t, AllPlotKinds(), kinds)

	kinds, err = ParsePlotKinds(" Compare, track,compare ")
	require.NoError(t, err)
	assert.Equal(t, []PlotKind{PlotCompare, PlotTrack}, kinds)

	_, err = ParsePlotKinds("track,radar")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "radar")

	_, err = ParsePlotKinds(",,")
	require.Error(t, err)
}

func TestPlotKindValid(t *testing.T) {
	assert.True(t, PlotForecastCone.Valid())
	assert.False(t, PlotKind("../etc").Valid())
}

func TestImageDateUsesClock(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2024, time.August, 14, 23, 30, 0, 0, time.FixedZone("EDT", -4*3600)))
	SetClock(fake)
	t.Cleanup(func() { SetClock(nil) })

	assert.Equal(t, "2024-08-15", ImageDate(), "partition is the UTC date")
}

func TestBestTrackLastObserved(t *testing.T) {
	assert.True(t, BestTrack{}.LastObserved().IsZero())

	last := time.Date(2024, 8, 14, 12, 0, 0, 0, time.UTC)
	b := BestTrack{Points: []TrackPoint{{Time: last.Add(-6 * time.Hour)}, {Time: last}}}
	assert.Equal(t, last, b.LastObserved())
}
