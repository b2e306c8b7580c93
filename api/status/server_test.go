package status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ipfs/go-datastore"
	ds_sync "github.com/ipfs/go-datastore/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shredwatch/shredwatch-node/archive"
	"github.com/shredwatch/shredwatch-node/das"
	"github.com/shredwatch/shredwatch-node/fragment"
	"github.com/shredwatch/shredwatch-node/fragment/fragmenttest"
	"github.com/shredwatch/shredwatch-node/health"
)

type fixedStats das.SamplingStats

func (s fixedStats) SamplingStats() das.SamplingStats {
	return das.SamplingStats(s)
}

func newTestServer(t *testing.T, tracker *health.Tracker, ar ArchiveReader) *Server {
	t.Helper()

	h, err := NewHandler(tracker, fixedStats{SlotsCompleted: 3, LastSampledSlot: 12345}, ar)
	require.NoError(t, err)

	srv := NewServer("127.0.0.1", "0")
	h.RegisterMiddleware(srv)
	h.RegisterEndpoints(srv)
	return srv
}

func get(t *testing.T, srv http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	tracker := health.NewTracker("starting")
	srv := newTestServer(t, tracker, nil)

	rec := get(t, srv, healthEndpoint)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var state struct {
		Status string `json:"status"`
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "Initializing", state.Status)
	assert.Equal(t, "starting", state.Detail)

	tracker.Set(health.Crashed, "slot subscription lost")
	rec = get(t, srv, healthEndpoint)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "Crashed", state.Status)
}

func TestSamplingEndpoint(t *testing.T) {
	srv := newTestServer(t, health.NewTracker(""), nil)

	rec := get(t, srv, samplingEndpoint)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats das.SamplingStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 3, stats.SlotsCompleted)
	assert.EqualValues(t, 12345, stats.LastSampledSlot)
}

func TestMetricsEndpoint(t *testing.T) {
	tracker := health.NewTracker("")
	tracker.Set(health.Active, "sampling")
	srv := newTestServer(t, tracker, nil)

	rec := get(t, srv, metricsEndpoint)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "shredwatch_health_status 2")
	assert.Contains(t, body, "shredwatch_last_sampled_slot 12345")
	assert.Contains(t, body, "go_goroutines")
}

func TestArchiveEndpoint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	store, err := archive.NewStore(ds_sync.MutexWrap(datastore.NewMapDatastore()))
	require.NoError(t, err)

	producer := fragmenttest.NewProducer(t)
	frags := producer.Slot(t, 77, fragment.KindData, 4)
	v, err := fragment.Verify(frags[2], producer.Pubkey)
	require.NoError(t, err)
	_, err = store.Put(ctx, v, producer.Pubkey)
	require.NoError(t, err)

	srv := newTestServer(t, health.NewTracker(""), store)

	rec := get(t, srv, fmt.Sprintf("%s/77/data/2", archiveEndpoint))
	require.Equal(t, http.StatusOK, rec.Code)
	var got archive.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Fragment.Equal(frags[2]))
	assert.Equal(t, producer.Pubkey, got.Producer)

	tests := []struct {
		path string
		code int
	}{
		{"/archive/77/data/3", http.StatusNotFound},
		{"/archive/77/coding/2", http.StatusNotFound},
		{"/archive/x/data/2", http.StatusBadRequest},
		{"/archive/77/blob/2", http.StatusBadRequest},
		{"/archive/77/data/-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.code, get(t, srv, tt.path).Code)
		})
	}
}

func TestArchiveEndpointDisabled(t *testing.T) {
	srv := newTestServer(t, health.NewTracker(""), nil)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/archive/77/data/2").Code)
}

func TestServerStartStop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	srv := newTestServer(t, health.NewTracker("up"), nil)
	require.NoError(t, srv.Start(ctx))
	// starting twice is a no-op
	require.NoError(t, srv.Start(ctx))

	addr := srv.ListenAddr()
	require.NotEmpty(t, addr)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+healthEndpoint, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(string(body), `"detail":"up"`))

	require.NoError(t, srv.Stop(ctx))
	assert.Empty(t, srv.ListenAddr())
	// stopping twice is a no-op
	require.NoError(t, srv.Stop(ctx))
}
