// Package hafs reads storm statistics from the HAFS hurricane model feed on
// NOMADS. Each model cycle directory lists one "stats.short" text file per
// storm it ran.
package hafs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/couchcryptid/storm-plots-service/internal/domain"
	"github.com/couchcryptid/storm-plots-service/internal/observability"
)

const source = "hafs"

// statsMarker selects the storm statistics files in a cycle listing.
const statsMarker = "stats.short"

// cycleHours are the synoptic hours the model runs, newest first.
var cycleHours = []int{18, 12, 6, 0}

var linkRe = regexp.MustCompile(`<a href="([^"]+)">`)

// Client lists and fetches HAFS cycles.
type Client struct {
	httpClient *http.Client
	baseURL    string
	models     []string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a HAFS client for the given model identifiers, e.g. hfsa, hfsb.
func NewClient(baseURL string, models []string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		models:     models,
		logger:     logger,
		metrics:    metrics,
	}
}

// MostRecent returns the records of the newest cycle that lists at least one
// storm, per model. Cycles from today and yesterday (UTC) are tried newest
// first; cycles still in the future are skipped. A cycle that fails to list
// is logged and the walk moves on. Only context cancellation is an error.
func (c *Client) MostRecent(ctx context.Context) ([]domain.ForecastRecord, error) {
	now := domain.Now()
	var all []domain.ForecastRecord

	for _, model := range c.models {
		for _, cycle := range candidateCycles(now) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			records, err := c.Cycle(ctx, model, cycle)
			if err != nil {
				c.logger.Warn("hafs cycle unavailable", "model", model, "cycle", cycle.Format(domain.IssueLayout), "error", err)
				continue
			}
			if len(records) == 0 {
				c.logger.Info("hafs cycle has no storms yet", "model", model, "cycle", cycle.Format(domain.IssueLayout))
				continue
			}
			c.logger.Info("hafs cycle found", "model", model, "cycle", cycle.Format(domain.IssueLayout), "storms", len(records))
			all = append(all, records...)
			break
		}
	}
	return all, nil
}

// candidateCycles lists today's and yesterday's cycles newest first, dropping
// any after now.
func candidateCycles(now time.Time) []time.Time {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var out []time.Time
	for _, day := range []time.Time{today, today.AddDate(0, 0, -1)} {
		for _, h := range cycleHours {
			cycle := day.Add(time.Duration(h) * time.Hour)
			if cycle.After(now) {
				continue
			}
			out = append(out, cycle)
		}
	}
	return out
}

// Cycle fetches every storm statistics file listed for one model cycle. A
// listing failure is returned; a storm file that cannot be fetched or parsed
// is logged and skipped.
func (c *Client) Cycle(ctx context.Context, model string, cycle time.Time) ([]domain.ForecastRecord, error) {
	cycle = cycle.UTC()
	dir := fmt.Sprintf("%s/%s.%s/%02d/", c.baseURL, model, cycle.Format("20060102"), cycle.Hour())
	dirURL, err := url.Parse(dir)
	if err != nil {
		return nil, fmt.Errorf("parse cycle url: %w", err)
	}

	listing, err := c.get(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var records []domain.ForecastRecord
	for _, href := range statsLinks(listing) {
		ref, err := url.Parse(href)
		if err != nil {
			c.logger.Warn("skipping bad hafs link", "href", href, "error", err)
			continue
		}
		rec, err := c.stormFile(ctx, dirURL.ResolveReference(ref).String(), model, cycle)
		if err != nil {
			c.logger.Warn("skipping hafs storm file", "model", model, "file", href, "error", err)
			c.metrics.RecordsInvalid.WithLabelValues(source).Inc()
			continue
		}
		records = append(records, rec)
	}
	c.metrics.RecordsFetched.WithLabelValues(source).Add(float64(len(records)))
	return records, nil
}

func (c *Client) stormFile(ctx context.Context, fileURL, model string, cycle time.Time) (domain.ForecastRecord, error) {
	prefix, _, _ := strings.Cut(path.Base(fileURL), ".")
	stormID, err := domain.NormalizeStormID(prefix, cycle.Year())
	if err != nil {
		return domain.ForecastRecord{}, err
	}

	body, err := c.get(ctx, fileURL)
	if err != nil {
		return domain.ForecastRecord{}, err
	}
	rows, err := ParseStats(bytes.NewReader(body))
	if err != nil {
		return domain.ForecastRecord{}, err
	}
	return domain.RecordFromStats(stormID, model, cycle, rows)
}

// statsLinks extracts the storm statistics hrefs from a directory listing.
func statsLinks(listing []byte) []string {
	var links []string
	seen := make(map[string]bool)
	for _, m := range linkRe.FindAllSubmatch(listing, -1) {
		href := string(m[1])
		if !strings.Contains(href, statsMarker) || seen[href] {
			continue
		}
		seen[href] = true
		links = append(links, href)
	}
	return links
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	start := time.Now()
	defer func() {
		c.metrics.FetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("hafs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.FetchRequests.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("hafs error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("read hafs response: %w", err)
	}
	c.metrics.FetchRequests.WithLabelValues(source, "success").Inc()
	return body, nil
}
