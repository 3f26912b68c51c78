package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("storm skipped", "storm_id", "AL052024")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "storm skipped", line["msg"])
	assert.Equal(t, "AL052024", line["storm_id"])
	assert.Equal(t, "WARN", line["level"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "text")

	logger.Debug("rendered", "kind", "track")
	assert.Contains(t, buf.String(), "rendered")
	assert.Contains(t, buf.String(), "track")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestNewMetricsWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.ImagesRendered.WithLabelValues("track").Inc()
	m.FetchRequests.WithLabelValues("hafs", "error").Add(2)

	assert.InDelta(t, 1, testutil.ToFloat64(m.ImagesRendered.WithLabelValues("track")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.FetchRequests.WithLabelValues("hafs", "error")), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "storm_plots_images_rendered_total")
	assert.Contains(t, names, "storm_plots_fetch_requests_total")
}
