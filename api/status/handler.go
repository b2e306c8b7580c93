package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shredwatch/shredwatch-node/archive"
	"github.com/shredwatch/shredwatch-node/das"
	"github.com/shredwatch/shredwatch-node/fragment"
	"github.com/shredwatch/shredwatch-node/health"
)

const (
	healthEndpoint   = "/status/health"
	samplingEndpoint = "/status/sampling"
	archiveEndpoint  = "/archive"
	metricsEndpoint  = "/metrics"

	slotKey  = "slot"
	kindKey  = "kind"
	indexKey = "index"
)

// HealthReader exposes the current client status.
type HealthReader interface {
	Get() health.State
}

// StatsReader exposes the sampling statistics.
type StatsReader interface {
	SamplingStats() das.SamplingStats
}

// ArchiveReader reads archived fragments back.
type ArchiveReader interface {
	Get(ctx context.Context, id fragment.ID) (*archive.Record, error)
}

// Handler serves the read side of the node: health, sampling statistics,
// archived fragments and process metrics.
type Handler struct {
	health  HealthReader
	stats   StatsReader
	archive ArchiveReader

	registry *prometheus.Registry
}

// NewHandler creates a new Handler. A nil archive leaves the archive endpoint
// unregistered.
func NewHandler(hr HealthReader, sr StatsReader, ar ArchiveReader) (*Handler, error) {
	h := &Handler{
		health:   hr,
		stats:    sr,
		archive:  ar,
		registry: prometheus.NewRegistry(),
	}

	err := h.registry.Register(collectors.NewGoCollector())
	if err != nil {
		return nil, err
	}
	err = h.registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err != nil {
		return nil, err
	}
	err = h.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "shredwatch_health_status",
		Help: "current client status: 0 initializing, 1 searching, 2 active, 3 crashed, 4 shutting down",
	}, func() float64 {
		return float64(h.health.Get().Status)
	}))
	if err != nil {
		return nil, err
	}
	err = h.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "shredwatch_last_sampled_slot",
		Help: "the last slot the sampler completed",
	}, func() float64 {
		return float64(h.stats.SamplingStats().LastSampledSlot)
	}))
	if err != nil {
		return nil, err
	}
	return h, nil
}

// RegisterEndpoints registers all handler endpoints on the server.
func (h *Handler) RegisterEndpoints(srv *Server) {
	srv.RegisterHandlerFunc(healthEndpoint, h.handleHealthRequest, http.MethodGet)
	srv.RegisterHandlerFunc(samplingEndpoint, h.handleSamplingRequest, http.MethodGet)
	srv.RegisterHandler(metricsEndpoint, promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{Registry: h.registry}))

	// only register if archiving is enabled
	if h.archive != nil {
		srv.RegisterHandlerFunc(
			fmt.Sprintf("%s/{%s}/{%s}/{%s}", archiveEndpoint, slotKey, kindKey, indexKey),
			h.handleArchiveRequest,
			http.MethodGet,
		)
	}
}

func (h *Handler) handleHealthRequest(w http.ResponseWriter, _ *http.Request) {
	state := h.health.Get()

	code := http.StatusOK
	if state.Status >= health.Crashed {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, healthEndpoint, state)
}

func (h *Handler) handleSamplingRequest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, samplingEndpoint, h.stats.SamplingStats())
}

func (h *Handler) handleArchiveRequest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	slot, err := strconv.ParseUint(vars[slotKey], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, archiveEndpoint, fmt.Errorf("invalid slot: %w", err))
		return
	}
	kind, err := fragment.ParseKind(vars[kindKey])
	if err != nil {
		writeError(w, http.StatusBadRequest, archiveEndpoint, err)
		return
	}
	index, err := strconv.ParseUint(vars[indexKey], 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, archiveEndpoint, fmt.Errorf("invalid index: %w", err))
		return
	}

	rec, err := h.archive.Get(r.Context(), fragment.ID{Slot: slot, Kind: kind, Index: uint32(index)})
	switch {
	case errors.Is(err, archive.ErrNotFound):
		writeError(w, http.StatusNotFound, archiveEndpoint, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, archiveEndpoint, err)
		return
	}
	writeJSON(w, http.StatusOK, archiveEndpoint, rec)
}

func writeJSON(w http.ResponseWriter, statusCode int, endpoint string, v any) {
	resp, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, endpoint, err)
		return
	}

	w.WriteHeader(statusCode)
	_, err = w.Write(resp)
	if err != nil {
		log.Errorw("serving request", "endpoint", endpoint, "err", err)
	}
}
