package hafs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-plots-service/internal/domain"
	"github.com/couchcryptid/storm-plots-service/internal/observability"
)

const statsFile = "HOUR:   0.0 LONG:  -61.500 LAT:  17.200 MIN PRESS (hPa):  1006.51 MAX SURF WIND (KNOTS):  37.59\n" +
	"HOUR:  12.0 LONG:  -63.250 LAT:  18.900 MIN PRESS (hPa):   998.02 MAX SURF WIND (KNOTS):  48.10\n" +
	"\n"

const listingA = `<html><body>
<a href="../">../</a>
<a href="05l.2024081412.hfsa.storm.atcfunix">05l.2024081412.hfsa.storm.atcfunix</a>
<a href="05l.2024081412.hfsa.storm.stats.short">05l.2024081412.hfsa.storm.stats.short</a>
<a href="ernesto06e.2024081412.hfsa.storm.stats.short">ernesto06e.2024081412.hfsa.storm.stats.short</a>
</body></html>`

const listingEmpty = `<html><body><a href="../">../</a></body></html>`

const listingB = `<a href="05l.2024081400.hfsb.storm.stats.short">05l.2024081400.hfsb.storm.stats.short</a>
<a href="99q.2024081400.hfsb.storm.stats.short">99q.2024081400.hfsb.storm.stats.short</a>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func freezeClock(t *testing.T, now time.Time) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })
}

type requestLog struct {
	mu    sync.Mutex
	paths []string
}

func (l *requestLog) add(p string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, p)
}

func (l *requestLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

func newTestServer(t *testing.T) (*httptest.Server, *requestLog) {
	t.Helper()
	requested := &requestLog{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /hfsa.20240814/12/", func(w http.ResponseWriter, r *http.Request) {
		requested.add(r.URL.Path)
		switch {
		case r.URL.Path == "/hfsa.20240814/12/":
			_, _ = io.WriteString(w, listingA)
		case strings.HasSuffix(r.URL.Path, ".stats.short"):
			_, _ = io.WriteString(w, statsFile)
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("GET /hfsb.20240814/06/", func(w http.ResponseWriter, r *http.Request) {
		requested.add(r.URL.Path)
		_, _ = io.WriteString(w, listingEmpty)
	})
	mux.HandleFunc("GET /hfsb.20240814/00/", func(w http.ResponseWriter, r *http.Request) {
		requested.add(r.URL.Path)
		if r.URL.Path == "/hfsb.20240814/00/" {
			_, _ = io.WriteString(w, listingB)
			return
		}
		_, _ = io.WriteString(w, statsFile)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		requested.add(r.URL.Path)
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, requested
}

func testClient(baseURL string, models ...string) *Client {
	return NewClient(baseURL, models, 5*time.Second, discardLogger(), observability.NewMetricsForTesting())
}

func TestCandidateCycles(t *testing.T) {
	now := time.Date(2024, 8, 14, 14, 30, 0, 0, time.UTC)
	cycles := candidateCycles(now)

	want := []time.Time{
		time.Date(2024, 8, 14, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 8, 14, 6, 0, 0, 0, time.UTC),
		time.Date(2024, 8, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 8, 13, 18, 0, 0, 0, time.UTC),
		time.Date(2024, 8, 13, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 8, 13, 6, 0, 0, 0, time.UTC),
		time.Date(2024, 8, 13, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, want, cycles)
}

func TestCandidateCycles_ExactCycleTimeIncluded(t *testing.T) {
	cycles := candidateCycles(time.Date(2024, 8, 14, 18, 0, 0, 0, time.UTC))
	require.NotEmpty(t, cycles)
	assert.Equal(t, time.Date(2024, 8, 14, 18, 0, 0, 0, time.UTC), cycles[0])
	assert.Len(t, cycles, 8)
}

func TestClient_Cycle(t *testing.T) {
	srv, _ := newTestServer(t)
	c := testClient(srv.URL)

	records, err := c.Cycle(context.Background(), "hfsa", time.Date(2024, 8, 14, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, records, 2)

	rec := records[0]
	assert.Equal(t, "AL052024", rec.StormID)
	assert.Equal(t, "HFSA", rec.ModelID)
	assert.Equal(t, domain.SourceHAFS, rec.Source)
	assert.Equal(t, time.Date(2024, 8, 14, 12, 0, 0, 0, time.UTC), rec.IssueTime)
	require.Len(t, rec.Points, 2)
	assert.Equal(t, 12, rec.Points[1].FHR)
	assert.InDelta(t, -63.25, rec.Points[1].Lon, 1e-9)
	assert.InDelta(t, 18.9, rec.Points[1].Lat, 1e-9)
	assert.InDelta(t, 48.1, rec.Points[1].WindKt, 1e-9)
	assert.InDelta(t, 998.02, rec.Points[1].PressureHPa, 1e-9)

	assert.Equal(t, "EP062024", records[1].StormID)
}

func TestClient_Cycle_ListingError(t *testing.T) {
	srv, _ := newTestServer(t)
	c := testClient(srv.URL)

	_, err := c.Cycle(context.Background(), "hfsa", time.Date(2024, 8, 14, 18, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestClient_MostRecent(t *testing.T) {
	freezeClock(t, time.Date(2024, 8, 14, 14, 30, 0, 0, time.UTC))
	srv, requested := newTestServer(t)
	c := testClient(srv.URL, "hfsa", "hfsb")

	records, err := c.MostRecent(context.Background())
	require.NoError(t, err)

	// hfsa: 2 storms at 12Z. hfsb: 12Z missing, 06Z empty, 00Z has one valid
	// storm file and one with an unknown basin letter.
	require.Len(t, records, 3)

	var hfsb []domain.ForecastRecord
	for _, r := range records {
		if r.ModelID == "HFSB" {
			hfsb = append(hfsb, r)
		}
	}
	require.Len(t, hfsb, 1)
	assert.Equal(t, time.Date(2024, 8, 14, 0, 0, 0, 0, time.UTC), hfsb[0].IssueTime)

	paths := requested.all()
	assert.NotContains(t, paths, "/hfsa.20240814/18/")
	assert.NotContains(t, paths, "/hfsa.20240814/06/")
	assert.Contains(t, paths, "/hfsb.20240814/12/")
	assert.NotContains(t, paths, "/hfsb.20240813/18/")
}

func TestClient_MostRecent_NothingAvailable(t *testing.T) {
	freezeClock(t, time.Date(2024, 8, 14, 14, 30, 0, 0, time.UTC))
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	records, err := testClient(srv.URL, "hfsa").MostRecent(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClient_MostRecent_Canceled(t *testing.T) {
	freezeClock(t, time.Date(2024, 8, 14, 14, 30, 0, 0, time.UTC))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient("http://127.0.0.1:0", "hfsa").MostRecent(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestStatsLinks(t *testing.T) {
	links := statsLinks([]byte(listingA + listingA))
	assert.Equal(t, []string{
		"05l.2024081412.hfsa.storm.stats.short",
		"ernesto06e.2024081412.hfsa.storm.stats.short",
	}, links)
}
