// Package status serves the operational HTTP surface: health, JSON stats, Prometheus
// metrics, a forced-reconnect trigger and a websocket candle stream.
package status

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rxtech-lab/quotex-connect/internal/assets"
	"github.com/rxtech-lab/quotex-connect/internal/logger"
	"github.com/rxtech-lab/quotex-connect/internal/queue"
	"github.com/rxtech-lab/quotex-connect/internal/session"
	"github.com/rxtech-lab/quotex-connect/internal/types"
	"github.com/rxtech-lab/quotex-connect/internal/watchdog"
	"github.com/rxtech-lab/quotex-connect/pkg/errors"
	"go.uber.org/zap"
)

type ConnectionSource interface {
	State() types.ConnectionState
	Epoch() uint64
}

type WatchdogSource interface {
	Stats() watchdog.Stats
	ForceReconnect(ctx context.Context) error
}

type QueueSource interface {
	Stats() queue.Stats
	Subscriptions() []queue.Subscription
}

type SessionSource interface {
	Summary() session.Summary
}

type AssetSource interface {
	Best(n int) []types.AssetInfo
	Stats() assets.Stats
}

// Sources are the components the server reports on. Only Connection is required.
type Sources struct {
	Connection ConnectionSource
	Watchdog   WatchdogSource
	Queue      QueueSource
	Session    SessionSource
	Assets     AssetSource
	// Candles enables /ws/candles when set
	Candles CandleSubscriber
}

// ConnectionStats is the connection part of /stats.
type ConnectionStats struct {
	State types.ConnectionState `json:"state"`
	Epoch uint64                `json:"epoch"`
}

// Stats is the /stats document. Sections of missing sources are omitted.
type Stats struct {
	Version       string               `json:"version"`
	Connection    ConnectionStats      `json:"connection"`
	Watchdog      *watchdog.Stats      `json:"watchdog,omitempty"`
	Queue         *queue.Stats         `json:"queue,omitempty"`
	Subscriptions []queue.Subscription `json:"subscriptions,omitempty"`
	Session       *session.Summary     `json:"session,omitempty"`
	Assets        *assets.Stats        `json:"assets,omitempty"`
}

// Server is the status HTTP server.
type Server struct {
	sources  Sources
	registry *prometheus.Registry
	version  string
	log      *logger.Logger
	hub      *candleHub

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

func NewServer(sources Sources, registry *prometheus.Registry, version string, log *logger.Logger) *Server {
	log = log.Component("status")

	var hub *candleHub
	if sources.Candles != nil {
		hub = newCandleHub(sources.Candles, log)
	}

	return &Server{
		sources:  sources,
		registry: registry,
		version:  version,
		log:      log,
		hub:      hub,

		mu:         sync.Mutex{},
		httpServer: nil,
		listener:   nil,
	}
}

// Router returns the route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	router.HandleFunc("/assets/best", s.handleBestAssets).Methods(http.MethodGet)
	router.HandleFunc("/reconnect", s.handleReconnect).Methods(http.MethodPost)

	if s.registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet) //nolint:exhaustruct
	}

	if s.hub != nil {
		router.HandleFunc("/ws/candles/{asset}/{period:[0-9]+}", s.handleCandleStream)
	}

	return router
}

// Start listens on address and serves in the background. An address of ":0" picks a free port.
func (s *Server) Start(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return nil
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeUnknown, err, "failed to listen on %s", address)
	}

	s.listener = listener
	s.httpServer = &http.Server{ //nolint:exhaustruct
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	server := s.httpServer

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Status server failed", zap.Error(err))
		}
	}()

	s.log.Info("Status server listening", zap.String("address", listener.Addr().String()))

	return nil
}

// Stop shuts the server down, closing open candle streams.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.httpServer
	s.httpServer = nil
	s.listener = nil
	s.mu.Unlock()

	if server == nil {
		return nil
	}

	if s.hub != nil {
		s.hub.closeAll()
	}

	return server.Shutdown(ctx)
}

// Address returns the bound address, or "" when not started.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := s.sources.Connection.State()

	code := http.StatusOK
	if state != types.ConnectionStateConnected {
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status": state.String(),
		"epoch":  s.sources.Connection.Epoch(),
	})
}

// Snapshot collects the current stats of every source.
func (s *Server) Snapshot() Stats {
	stats := Stats{
		Version: s.version,
		Connection: ConnectionStats{
			State: s.sources.Connection.State(),
			Epoch: s.sources.Connection.Epoch(),
		},
		Watchdog:      nil,
		Queue:         nil,
		Subscriptions: nil,
		Session:       nil,
		Assets:        nil,
	}

	if s.sources.Watchdog != nil {
		w := s.sources.Watchdog.Stats()
		stats.Watchdog = &w
	}

	if s.sources.Queue != nil {
		q := s.sources.Queue.Stats()
		stats.Queue = &q
		stats.Subscriptions = s.sources.Queue.Subscriptions()
	}

	if s.sources.Session != nil {
		summary := s.sources.Session.Summary()
		stats.Session = &summary
	}

	if s.sources.Assets != nil {
		a := s.sources.Assets.Stats()
		stats.Assets = &a
	}

	return stats
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (s *Server) handleBestAssets(w http.ResponseWriter, r *http.Request) {
	if s.sources.Assets == nil {
		writeError(w, http.StatusNotFound, "asset selection is disabled")

		return
	}

	n := 5

	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "n must be a non-negative integer")

			return
		}

		n = parsed
	}

	writeJSON(w, http.StatusOK, s.sources.Assets.Best(n))
}

func (s *Server) handleReconnect(w http.ResponseWriter, r *http.Request) {
	if s.sources.Watchdog == nil {
		writeError(w, http.StatusNotFound, "watchdog is disabled")

		return
	}

	if err := s.sources.Watchdog.ForceReconnect(r.Context()); err != nil {
		s.log.Warn("Forced reconnection failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": s.sources.Connection.State().String(),
		"epoch":  s.sources.Connection.Epoch(),
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
