package nodebuilder

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	collectormetricpb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	"google.golang.org/protobuf/proto"

	"github.com/shredwatch/shredwatch-node/fragment"
	"github.com/shredwatch/shredwatch-node/fragment/fragmenttest"
	"github.com/shredwatch/shredwatch-node/health"
	"github.com/shredwatch/shredwatch-node/ledger/ledgertest"
)

func testConfig(fake *ledgertest.Ledger) *Config {
	cfg := DefaultConfig()
	cfg.Ledger.Cluster = "custom"
	cfg.Ledger.URL = fake.URL()
	cfg.Ledger.WSURL = fake.WSURL()
	cfg.DASer.VerifyWorkers = 2
	cfg.Status.Enabled = true
	cfg.Status.Address = "127.0.0.1"
	// avoids port conflicts
	cfg.Status.Port = "0"
	return cfg
}

func testNode(t *testing.T, cfg *Config) *Node {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, Init(*cfg, dir))
	store, err := OpenStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	nd, err := New(store)
	require.NoError(t, err)
	return nd
}

func TestLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	t.Cleanup(cancel)

	fake := ledgertest.New(t)
	producer := fragmenttest.NewProducer(t)
	frags := producer.Slot(t, 900, fragment.KindCoding, 16)
	fake.AddSlot(t, 900, producer.Pubkey, frags)

	nd := testNode(t, testConfig(fake))
	require.NotNil(t, nd.Archive)
	require.NotNil(t, nd.StatusServer)

	require.NoError(t, nd.Start(ctx))
	require.NoError(t, fake.WaitSubscribed(ctx))

	fake.PublishRoot(900)
	require.Eventually(t, func() bool {
		st := nd.DASer.SamplingStats()
		return st.SlotsCompleted == 1 && st.FragmentsArchived > 0 &&
			st.FragmentsArchived == st.FragmentsVerified
	}, 10*time.Second, 10*time.Millisecond)

	rec, err := nd.Archive.Get(ctx, fragment.ID{Slot: 900, Kind: fragment.KindCoding, Index: 0})
	require.NoError(t, err)
	assert.True(t, frags[0].Equal(rec.Fragment))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"http://"+nd.StatusServer.ListenAddr()+"/status/health", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var state map[string]any
	err = json.NewDecoder(resp.Body).Decode(&state)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Active", state["status"])
	assert.Equal(t, health.Active, nd.Health.Get().Status)

	require.NoError(t, nd.Stop(ctx))
	assert.Equal(t, health.ShuttingDown, nd.Health.Get().Status)
}

func TestArchiveDisabled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	t.Cleanup(cancel)

	fake := ledgertest.New(t)
	producer := fragmenttest.NewProducer(t)
	fake.AddSlot(t, 901, producer.Pubkey, producer.Slot(t, 901, fragment.KindData, 8))

	cfg := testConfig(fake)
	cfg.Archive.Enabled = false
	cfg.Status.Enabled = false
	nd := testNode(t, cfg)
	assert.Nil(t, nd.Archive)
	assert.Nil(t, nd.StatusServer)

	require.NoError(t, nd.Start(ctx))
	require.NoError(t, fake.WaitSubscribed(ctx))

	fake.PublishRoot(901)
	require.Eventually(t, func() bool {
		st := nd.DASer.SamplingStats()
		return st.SlotsCompleted == 1 && st.FragmentsVerified > 0 && st.PendingVerifiedFragment == 0
	}, 10*time.Second, 10*time.Millisecond)
	assert.Zero(t, nd.DASer.SamplingStats().FragmentsArchived)

	require.NoError(t, nd.Stop(ctx))
}

func TestNewInvalidConfig(t *testing.T) {
	fake := ledgertest.New(t)
	cfg := testConfig(fake)
	dir := t.TempDir()
	require.NoError(t, Init(*cfg, dir))
	store, err := OpenStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	cfg.DASer.SampleSize = 0
	_, err = NewWithConfig(store, cfg)
	require.Error(t, err)
}

func TestLifecycle_WithMetrics(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	t.Cleanup(cancel)

	collector := newMockOtelCollector(t)
	fake := ledgertest.New(t)
	producer := fragmenttest.NewProducer(t)
	fake.AddSlot(t, 902, producer.Pubkey, producer.Slot(t, 902, fragment.KindData, 8))

	cfg := testConfig(fake)
	cfg.Status.Enabled = false
	dir := t.TempDir()
	require.NoError(t, Init(*cfg, dir))
	store, err := OpenStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	nd, err := New(store, WithMetrics(true, []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(strings.TrimPrefix(collector.URL, "http://")),
		otlpmetrichttp.WithInsecure(),
	}))
	require.NoError(t, err)

	require.NoError(t, nd.Start(ctx))
	require.NoError(t, fake.WaitSubscribed(ctx))
	fake.PublishRoot(902)
	require.Eventually(t, func() bool {
		return nd.DASer.SamplingStats().SlotsCompleted == 1
	}, 10*time.Second, 10*time.Millisecond)

	// stopping flushes the meter provider
	require.NoError(t, nd.Stop(ctx))

	names := collector.metricNames()
	assert.Contains(t, names, "das_sampled_slots_counter")
	assert.Contains(t, names, "das_latest_root_slot")
	assert.Contains(t, names, "node_start_ts")
}

type mockOtelCollector struct {
	*httptest.Server

	lk    sync.Mutex
	names map[string]struct{}
}

func newMockOtelCollector(t *testing.T) *mockOtelCollector {
	c := &mockOtelCollector{names: make(map[string]struct{})}
	c.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/metrics" || r.Method != http.MethodPost {
			t.Errorf("Expected to request [POST] '/v1/metrics', got: [%s] %s", r.Method, r.URL.Path)
		}

		var body io.Reader = r.Body
		if r.Header.Get("Content-Encoding") == "gzip" {
			gz, err := gzip.NewReader(r.Body)
			if err != nil {
				t.Errorf("reading gzip body: %v", err)
				return
			}
			defer gz.Close()
			body = gz
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			t.Errorf("reading body: %v", err)
			return
		}

		var req collectormetricpb.ExportMetricsServiceRequest
		if err := proto.Unmarshal(raw, &req); err != nil {
			t.Errorf("decoding export request: %v", err)
			return
		}
		c.lk.Lock()
		for _, rm := range req.GetResourceMetrics() {
			for _, sm := range rm.GetScopeMetrics() {
				for _, m := range sm.GetMetrics() {
					c.names[m.GetName()] = struct{}{}
				}
			}
		}
		c.lk.Unlock()

		rawResponse, _ := proto.Marshal(&collectormetricpb.ExportMetricsServiceResponse{})
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(rawResponse)
	}))
	t.Cleanup(c.Close)
	return c
}

func (c *mockOtelCollector) metricNames() []string {
	c.lk.Lock()
	defer c.lk.Unlock()
	names := make([]string, 0, len(c.names))
	for name := range c.names {
		names = append(names, name)
	}
	return names
}
