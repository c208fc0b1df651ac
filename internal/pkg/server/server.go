// Package server exposes the daemon's state over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/anicoll/fancontrol/internal/pkg/model"
)

var errNoReport = errors.New("no tick report yet")

type broadcaster interface {
	http.Handler
	Broadcast(msg []byte)
}

// History serves persisted samples.
type History interface {
	GetSamples(ctx context.Context, device, name string, from, to *time.Time) (model.Samples, error)
	GetLatestSamples(ctx context.Context) (model.Samples, error)
}

type server struct {
	hub      broadcaster
	gatherer prometheus.Gatherer
	history  History
	logger   *zap.Logger

	mu     sync.RWMutex
	latest []byte
}

// New builds the status server. history may be nil when no database is configured.
func New(hub broadcaster, gatherer prometheus.Gatherer, h History) *server {
	return &server{
		hub:      hub,
		gatherer: gatherer,
		history:  h,
		logger:   zap.L(),
	}
}

func (s *server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.getStatus)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.Handle("GET /ws", s.hub)
	if s.history != nil {
		mux.HandleFunc("GET /history", s.getLatestSamples)
		mux.HandleFunc("GET /history/{device}/{name}", s.getSamples)
	}
	return LoggingMiddleware(mux)
}

// Report keeps report as the latest status and streams it to websocket clients.
func (s *server) Report(report *model.TickReport) {
	payload, err := json.Marshal(report)
	if err != nil {
		s.logger.Error("failed to marshal tick report", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.latest = payload
	s.mu.Unlock()
	s.hub.Broadcast(payload)
}

func (s *server) getStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()
	if latest == nil {
		handleError(w, http.StatusServiceUnavailable, errNoReport)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(latest)
}

func (s *server) getLatestSamples(w http.ResponseWriter, r *http.Request) {
	samples, err := s.history.GetLatestSamples(r.Context())
	if err != nil {
		s.logger.Error("failed to read latest samples", zap.Error(err))
		handleError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, samples)
}

func (s *server) getSamples(w http.ResponseWriter, r *http.Request) {
	from, err := parseTime(r.URL.Query().Get("from"))
	if err != nil {
		handleError(w, http.StatusBadRequest, err)
		return
	}
	to, err := parseTime(r.URL.Query().Get("to"))
	if err != nil {
		handleError(w, http.StatusBadRequest, err)
		return
	}

	samples, err := s.history.GetSamples(r.Context(), r.PathValue("device"), r.PathValue("name"), from, to)
	if err != nil {
		s.logger.Error("failed to read samples", zap.Error(err))
		handleError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, samples)
}

func parseTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		handleError(w, http.StatusInternalServerError, err)
	}
}

func handleError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(err.Error()))
}
