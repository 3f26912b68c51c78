package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/storm-plots-service/internal/domain"
	"github.com/couchcryptid/storm-plots-service/internal/imagestore"
	"github.com/couchcryptid/storm-plots-service/internal/observability"
)

// Aggregator lists active storms and serves their tracks and forecasts.
type Aggregator interface {
	ListActiveStorms(ctx context.Context) ([]domain.Storm, error)
	BestTrack(ctx context.Context, stormID string) (domain.BestTrack, error)
	OperationalForecasts(ctx context.Context, stormID string) (domain.OperationalForecasts, error)
}

// HazardModel returns the latest hazard-model records for all storms.
type HazardModel interface {
	MostRecent(ctx context.Context) ([]domain.ForecastRecord, error)
}

// Renderer draws the three plot kinds as JPEG bytes.
type Renderer interface {
	StormTrack(storm domain.Storm, best domain.BestTrack, forecast domain.ForecastRecord) ([]byte, error)
	ForecastCone(storm domain.Storm, best domain.BestTrack, official domain.ForecastRecord) ([]byte, error)
	CompareForecasts(storm domain.Storm, best domain.BestTrack, records []domain.ForecastRecord) ([]byte, error)
}

// ImageWriter stores rendered images.
type ImageWriter interface {
	Put(ctx context.Context, key imagestore.Key, data []byte) error
}

// Notifier announces stored images.
type Notifier interface {
	Publish(ctx context.Context, events ...domain.PlotEvent) error
}

// Summary reports what one run did.
type Summary struct {
	Date          string
	StormsSeen    int
	StormsSkipped int
	ImagesWritten int
	ImageFailures int
	HazardRecords int
}

// Pipeline fetches both sources once, renders every enabled plot kind for
// each active storm and stores the images under today's date.
type Pipeline struct {
	aggregator Aggregator
	hazard     HazardModel
	renderer   Renderer
	store      ImageWriter
	notifier   Notifier
	kinds      []domain.PlotKind
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a Pipeline. hazard and notifier may be nil.
func New(a Aggregator, h HazardModel, r Renderer, s ImageWriter, n Notifier, kinds []domain.PlotKind, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		aggregator: a,
		hazard:     h,
		renderer:   r,
		store:      s,
		notifier:   n,
		kinds:      kinds,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run executes one fetch-and-render pass. Only a failure to list active
// storms, or cancellation, is returned as an error; every per-storm and
// per-image problem is logged, counted and skipped.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{Date: domain.ImageDate()}
	p.logger.Info("run started", "date", summary.Date, "kinds", p.kinds)

	storms, hazard, err := p.fetch(ctx)
	if err != nil {
		return summary, err
	}
	summary.StormsSeen = len(storms)
	summary.HazardRecords = len(hazard)
	p.logger.Info("sources fetched", "storms", len(storms), "hazard_records", len(hazard))

	for _, storm := range storms {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		p.processStorm(ctx, summary.Date, storm, hazard, &summary)
	}

	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.metrics.LastRunTimestamp.Set(float64(domain.Now().Unix()))
	p.logger.Info("run finished",
		"storms", summary.StormsSeen,
		"skipped", summary.StormsSkipped,
		"images", summary.ImagesWritten,
		"failures", summary.ImageFailures,
		"duration", time.Since(start),
	)
	return summary, nil
}

// fetch reads the active storm list and the hazard-model records
// concurrently. A hazard-model failure leaves the records empty.
func (p *Pipeline) fetch(ctx context.Context) ([]domain.Storm, []domain.ForecastRecord, error) {
	var storms []domain.Storm
	var hazard []domain.ForecastRecord

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := p.aggregator.ListActiveStorms(gctx)
		if err != nil {
			return fmt.Errorf("list active storms: %w", err)
		}
		storms = s
		return nil
	})
	if p.hazard != nil {
		g.Go(func() error {
			records, err := p.hazard.MostRecent(gctx)
			if err != nil {
				p.logger.Warn("hazard model fetch failed, continuing without it", "error", err)
				return nil
			}
			hazard = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return storms, hazard, nil
}

func (p *Pipeline) processStorm(ctx context.Context, date string, storm domain.Storm, hazard []domain.ForecastRecord, summary *Summary) {
	logger := p.logger.With("storm_id", storm.ID)
	logger.Info("storm started", "name", storm.Name)

	best, err := p.aggregator.BestTrack(ctx, storm.ID)
	if err != nil {
		logger.Warn("best track unavailable, skipping storm", "error", err)
		p.skip(summary)
		return
	}
	// One a-deck fetch per storm serves both the official forecast and the compare plot.
	ops, err := p.aggregator.OperationalForecasts(ctx, storm.ID)
	if err != nil {
		logger.Warn("forecast deck unavailable, skipping storm", "error", err)
		p.skip(summary)
		return
	}
	official, err := domain.LatestOfficial(storm.ID, ops)
	if err != nil {
		logger.Warn("official forecast unavailable, skipping storm", "error", err)
		p.skip(summary)
		return
	}
	forecasts := stormForecasts{official: official, ops: ops, hazard: hazard}

	var events []domain.PlotEvent
	for _, kind := range p.kinds {
		event, err := p.renderAndStore(ctx, date, kind, storm, best, forecasts)
		if err != nil {
			logger.Error("plot failed", "kind", kind, "error", err)
			p.metrics.ImageFailures.WithLabelValues(string(kind)).Inc()
			summary.ImageFailures++
			continue
		}
		p.metrics.ImagesRendered.WithLabelValues(string(kind)).Inc()
		summary.ImagesWritten++
		events = append(events, event)
		logger.Info("plot stored", "kind", kind, "key", event.Key, "bytes", event.Bytes)
	}

	if len(events) > 0 {
		p.metrics.StormsProcessed.Inc()
		p.notify(ctx, logger, events)
	}
}

func (p *Pipeline) skip(summary *Summary) {
	p.metrics.StormsSkipped.Inc()
	summary.StormsSkipped++
}

// stormForecasts are the forecast inputs fetched once per storm.
type stormForecasts struct {
	official domain.ForecastRecord
	ops      domain.OperationalForecasts
	hazard   []domain.ForecastRecord
}

func (p *Pipeline) renderAndStore(ctx context.Context, date string, kind domain.PlotKind, storm domain.Storm, best domain.BestTrack, forecasts stormForecasts) (domain.PlotEvent, error) {
	key, err := imagestore.NewKey(date, storm.ID, kind)
	if err != nil {
		return domain.PlotEvent{}, err
	}

	start := time.Now()
	data, err := p.render(kind, storm, best, forecasts)
	if err != nil {
		return domain.PlotEvent{}, err
	}
	p.metrics.RenderDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	if err := p.store.Put(ctx, key, data); err != nil {
		return domain.PlotEvent{}, fmt.Errorf("store %s: %w", key, err)
	}
	return domain.PlotEvent{
		Date:       date,
		StormID:    storm.ID,
		Kind:       kind,
		Key:        key.Path(),
		Bytes:      len(data),
		RenderedAt: domain.Now(),
	}, nil
}

// render draws one kind. A panic inside the chart library is returned as an error.
func (p *Pipeline) render(kind domain.PlotKind, storm domain.Storm, best domain.BestTrack, forecasts stormForecasts) (data []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render %s panicked: %v", kind, r)
		}
	}()

	switch kind {
	case domain.PlotTrack:
		return p.renderer.StormTrack(storm, best, forecasts.official)
	case domain.PlotForecastCone:
		return p.renderer.ForecastCone(storm, best, forecasts.official)
	case domain.PlotCompare:
		return p.renderer.CompareForecasts(storm, best, p.compareRecords(storm, forecasts))
	default:
		return nil, fmt.Errorf("unknown plot kind %q", kind)
	}
}

// compareRecords reconciles the aggregator's operational forecasts with the
// hazard-model records for one storm.
func (p *Pipeline) compareRecords(storm domain.Storm, forecasts stormForecasts) []domain.ForecastRecord {
	records, err := domain.FlattenOperational(storm.ID, forecasts.ops)
	if err != nil {
		p.logger.Warn("dropped malformed model runs", "storm_id", storm.ID, "error", err)
		p.metrics.RecordsInvalid.WithLabelValues(domain.SourceATCF).Inc()
	}
	p.metrics.RecordsFetched.WithLabelValues(domain.SourceATCF).Add(float64(len(records)))
	return domain.Reconcile(records, domain.ForStorm(forecasts.hazard, storm.ID))
}

func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, events []domain.PlotEvent) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Publish(ctx, events...); err != nil {
		logger.Warn("plot notification failed", "error", err)
		p.metrics.NotifyErrors.Inc()
	}
}
