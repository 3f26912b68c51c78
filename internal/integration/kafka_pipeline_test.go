//go:build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image/jpeg"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	httpadapter "github.com/couchcryptid/storm-plots-service/internal/adapter/http"
	"github.com/couchcryptid/storm-plots-service/internal/adapter/kafka"
	"github.com/couchcryptid/storm-plots-service/internal/adapter/nhc"
	"github.com/couchcryptid/storm-plots-service/internal/config"
	"github.com/couchcryptid/storm-plots-service/internal/domain"
	"github.com/couchcryptid/storm-plots-service/internal/imagestore"
	"github.com/couchcryptid/storm-plots-service/internal/observability"
	"github.com/couchcryptid/storm-plots-service/internal/pipeline"
	"github.com/couchcryptid/storm-plots-service/internal/render"
)

const testTopic = "test-storm-plots"

const currentStorms = `{"activeStorms":[{"id":"al052024","name":"Ernesto","classification":"HU",
"intensity":"65","pressure":"989","latitudeNumeric":17.0,"longitudeNumeric":-60.5,
"lastUpdate":"2024-08-14T15:00:00.000Z"}]}`

const bDeck = `AL, 05, 2024081400,   , BEST,   0, 155N,  570W,  50,  998, TS,
AL, 05, 2024081406,   , BEST,   0, 160N,  585W,  55,  995, TS,
AL, 05, 2024081412,   , BEST,   0, 170N,  605W,  65,  989, HU,  34, NEQ,   0,   0,   0,   0,    0,    0,   0,   0,   0,    ,   0,    ,   0,   0,    ERNESTO, M,
`

const aDeck = `AL, 05, 2024081412, 03, OFCL,   0, 170N,  605W,  65,  989, HU,
AL, 05, 2024081412, 03, OFCL,  12, 182N,  627W,  70,    0, HU,
AL, 05, 2024081412, 03, OFCL,  24, 195N,  648W,  75,    0, HU,
AL, 05, 2024081412, 03, OFCL,  36, 210N,  665W,  85,    0, HU,
AL, 05, 2024081412, 03, OFCL,  48, 228N,  675W,  90,    0, HU,
AL, 05, 2024081412, 03, AVNO,   0, 170N,  605W,  62,  990, XX,
AL, 05, 2024081412, 03, AVNO,  12, 184N,  630W,  66,  987, XX,
AL, 05, 2024081412, 03, AVNO,  24, 198N,  652W,  70,  984, XX,
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

// fakeUpstream serves the aggregator storm list and ATCF decks.
func fakeUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write([]byte(aDeck))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /CurrentStorms.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, currentStorms)
	})
	mux.HandleFunc("GET /atcf/btk/bal052024.dat", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, bDeck)
	})
	mux.HandleFunc("GET /atcf/aid_public/aal052024.dat.gz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(gz.Bytes())
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// TestBatchPublishesAndServes runs one batch against fake feeds and a real
// broker, then reads the notifications and fetches each image through the API.
func TestBatchPublishesAndServes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	upstream := fakeUpstream(t)
	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()
	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}

	aggregator := nhc.NewClient(upstream.URL+"/CurrentStorms.json", upstream.URL+"/atcf", 10*time.Second, logger, metrics)
	store := imagestore.NewFS(t.TempDir())
	writer := kafka.NewWriter(cfg, logger)
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(aggregator, nil, render.NewRenderer(nil, 85), store, writer, domain.AllPlotKinds(), logger, metrics)
	summary, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.StormsSeen)
	assert.Equal(t, 3, summary.ImagesWritten)
	assert.Zero(t, summary.ImageFailures)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	t.Cleanup(func() { _ = reader.Close() })

	api := httpadapter.NewServer(":0", store, logger, metrics)
	kinds := make(map[domain.PlotKind]bool)
	for range 3 {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := reader.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read plot event")

		assert.Equal(t, "AL052024", string(msg.Key))
		var event domain.PlotEvent
		require.NoError(t, json.Unmarshal(msg.Value, &event))
		assert.Equal(t, summary.Date, event.Date)
		kinds[event.Kind] = true

		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/images/"+event.Date+"/"+event.StormID+"/"+string(event.Kind), nil))
		require.Equal(t, http.StatusOK, rec.Code, event.Key)
		assert.Equal(t, event.Bytes, rec.Body.Len())

		img, err := jpeg.Decode(bytes.NewReader(rec.Body.Bytes()))
		require.NoError(t, err, "decode %s", event.Key)
		assert.Equal(t, 1200, img.Bounds().Dx())
	}
	assert.Len(t, kinds, 3)
}
