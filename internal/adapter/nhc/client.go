package nhc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/couchcryptid/storm-plots-service/internal/domain"
	"github.com/couchcryptid/storm-plots-service/internal/observability"
)

// Metric source labels.
const (
	sourceNHC  = "nhc"
	sourceATCF = "atcf"
)

// OfficialModel is the ATCF tech id of the NHC official forecast.
const OfficialModel = domain.OfficialModelID

// ErrNoForecast is returned when a storm has no official forecast yet.
var ErrNoForecast = domain.ErrNoForecast

// Client reads the NHC active-storm list and ATCF decks.
type Client struct {
	httpClient *http.Client
	stormsURL  string
	atcfURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an aggregator client.
func NewClient(stormsURL, atcfURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		stormsURL:  stormsURL,
		atcfURL:    strings.TrimRight(atcfURL, "/"),
		logger:     logger,
		metrics:    metrics,
	}
}

// ListActiveStorms returns the storms NHC currently tracks.
func (c *Client) ListActiveStorms(ctx context.Context) ([]domain.Storm, error) {
	body, err := c.get(ctx, c.stormsURL, sourceNHC)
	if err != nil {
		return nil, err
	}

	var resp currentStormsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode active storms: %w", err)
	}

	storms := make([]domain.Storm, 0, len(resp.ActiveStorms))
	for _, s := range resp.ActiveStorms {
		id, err := domain.NormalizeStormID(s.ID, 0)
		if err != nil {
			c.logger.Warn("skipping active storm with bad id", "id", s.ID, "error", err)
			c.metrics.RecordsInvalid.WithLabelValues(sourceNHC).Inc()
			continue
		}
		updated, _ := time.Parse(time.RFC3339, s.LastUpdate)
		storms = append(storms, domain.Storm{
			ID:             id,
			Name:           s.Name,
			Basin:          domain.BasinOf(id),
			Classification: s.Classification,
			Lat:            float64(s.Lat),
			Lon:            float64(s.Lon),
			IntensityKt:    float64(s.Intensity),
			PressureHPa:    float64(s.Pressure),
			LastUpdate:     updated.UTC(),
		})
	}
	if len(storms) == 0 {
		c.metrics.FetchRequests.WithLabelValues(sourceNHC, "empty").Inc()
	}
	return storms, nil
}

// BestTrack fetches and decodes the b-deck of a storm.
func (c *Client) BestTrack(ctx context.Context, stormID string) (domain.BestTrack, error) {
	u := fmt.Sprintf("%s/btk/b%s.dat", c.atcfURL, strings.ToLower(stormID))
	body, err := c.get(ctx, u, sourceATCF)
	if err != nil {
		return domain.BestTrack{}, err
	}

	rows, skipped, err := parseDeck(bytes.NewReader(body))
	if err != nil {
		return domain.BestTrack{}, fmt.Errorf("best track %s: %w", stormID, err)
	}
	c.countSkipped(stormID, skipped)
	if len(rows) == 0 {
		return domain.BestTrack{}, fmt.Errorf("best track %s: no fixes", stormID)
	}
	return bestTrackFromRows(stormID, rows), nil
}

// OperationalForecasts fetches the gzipped a-deck of a storm in the nested
// model -> issue time -> run shape.
func (c *Client) OperationalForecasts(ctx context.Context, stormID string) (domain.OperationalForecasts, error) {
	u := fmt.Sprintf("%s/aid_public/a%s.dat.gz", c.atcfURL, strings.ToLower(stormID))
	body, err := c.get(ctx, u, sourceATCF)
	if err != nil {
		return nil, err
	}

	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("forecast deck %s: %w", stormID, err)
	}
	defer zr.Close()

	rows, skipped, err := parseDeck(zr)
	if err != nil {
		return nil, fmt.Errorf("forecast deck %s: %w", stormID, err)
	}
	c.countSkipped(stormID, skipped)
	return operationalFromRows(rows), nil
}

// OfficialForecast returns the newest NHC official forecast for a storm.
func (c *Client) OfficialForecast(ctx context.Context, stormID string) (domain.ForecastRecord, error) {
	ops, err := c.OperationalForecasts(ctx, stormID)
	if err != nil {
		return domain.ForecastRecord{}, err
	}
	return domain.LatestOfficial(stormID, ops)
}

func (c *Client) countSkipped(stormID string, skipped int) {
	if skipped == 0 {
		return
	}
	c.logger.Debug("skipped malformed deck lines", "storm_id", stormID, "lines", skipped)
	c.metrics.RecordsInvalid.WithLabelValues(sourceATCF).Add(float64(skipped))
}

func (c *Client) get(ctx context.Context, url, source string) ([]byte, error) {
	start := time.Now()
	defer func() {
		c.metrics.FetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("%s request: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.FetchRequests.WithLabelValues(source, "error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s error: status %d: %s", source, resp.StatusCode, bytes.TrimSpace(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("read %s response: %w", source, err)
	}
	c.metrics.FetchRequests.WithLabelValues(source, "success").Inc()
	return body, nil
}

// NHC CurrentStorms.json response types.

type currentStormsResponse struct {
	ActiveStorms []activeStorm `json:"activeStorms"`
}

type activeStorm struct {
	ID             string    `json:"id"` // e.g. "al052024"
	Name           string    `json:"name"`
	Classification string    `json:"classification"`
	Intensity      flexFloat `json:"intensity"` // knots
	Pressure       flexFloat `json:"pressure"`  // mb
	Lat            flexFloat `json:"latitudeNumeric"`
	Lon            flexFloat `json:"longitudeNumeric"`
	LastUpdate     string    `json:"lastUpdate"`
}

// flexFloat accepts JSON numbers and numeric strings; anything else decodes as 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}
