package snapshot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/couchcryptid/storm-plots-service/internal/domain"
)

// AggregatorSource is the subset of the aggregator client that gets snapshotted.
type AggregatorSource interface {
	ListActiveStorms(ctx context.Context) ([]domain.Storm, error)
	BestTrack(ctx context.Context, stormID string) (domain.BestTrack, error)
	OperationalForecasts(ctx context.Context, stormID string) (domain.OperationalForecasts, error)
}

// HazardModelSource is the hazard-model feed.
type HazardModelSource interface {
	MostRecent(ctx context.Context) ([]domain.ForecastRecord, error)
}

// msgpack decodes timestamps into time.Local, so the wrappers convert
// replayed times back to UTC.

// Aggregator serves aggregator calls from snapshot files under dir, falling
// back to the wrapped source and saving what it fetched.
type Aggregator struct {
	inner  AggregatorSource
	dir    string
	logger *slog.Logger
}

// NewAggregator wraps an aggregator source with snapshot files in dir.
func NewAggregator(inner AggregatorSource, dir string, logger *slog.Logger) *Aggregator {
	return &Aggregator{inner: inner, dir: dir, logger: logger}
}

func (a *Aggregator) ListActiveStorms(ctx context.Context) ([]domain.Storm, error) {
	storms, err := LoadOrFetch(ctx, a.logger, Path(a.dir, "nhc_storms"), a.inner.ListActiveStorms)
	for i := range storms {
		storms[i].LastUpdate = storms[i].LastUpdate.UTC()
	}
	return storms, err
}

func (a *Aggregator) BestTrack(ctx context.Context, stormID string) (domain.BestTrack, error) {
	track, err := LoadOrFetch(ctx, a.logger, Path(a.dir, "atcf_b"+strings.ToLower(stormID)),
		func(ctx context.Context) (domain.BestTrack, error) { return a.inner.BestTrack(ctx, stormID) })
	for i := range track.Points {
		track.Points[i].Time = track.Points[i].Time.UTC()
	}
	return track, err
}

func (a *Aggregator) OperationalForecasts(ctx context.Context, stormID string) (domain.OperationalForecasts, error) {
	return LoadOrFetch(ctx, a.logger, Path(a.dir, "atcf_a"+strings.ToLower(stormID)),
		func(ctx context.Context) (domain.OperationalForecasts, error) {
			return a.inner.OperationalForecasts(ctx, stormID)
		})
}

// OfficialForecast is derived from the snapshotted operational forecasts.
func (a *Aggregator) OfficialForecast(ctx context.Context, stormID string) (domain.ForecastRecord, error) {
	ops, err := a.OperationalForecasts(ctx, stormID)
	if err != nil {
		return domain.ForecastRecord{}, err
	}
	return domain.LatestOfficial(stormID, ops)
}

// HazardModel serves the hazard-model feed from a single snapshot file.
type HazardModel struct {
	inner  HazardModelSource
	path   string
	logger *slog.Logger
}

// NewHazardModel wraps a hazard-model source with the data_hafs snapshot in dir.
func NewHazardModel(inner HazardModelSource, dir string, logger *slog.Logger) *HazardModel {
	return &HazardModel{inner: inner, path: Path(dir, domain.SourceHAFS), logger: logger}
}

func (h *HazardModel) MostRecent(ctx context.Context) ([]domain.ForecastRecord, error) {
	records, err := LoadOrFetch(ctx, h.logger, h.path, h.inner.MostRecent)
	for i := range records {
		records[i].IssueTime = records[i].IssueTime.UTC()
	}
	return records, err
}
