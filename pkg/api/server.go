/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package api provides the HTTP API server for UPSWatch.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/carverauto/upswatch/pkg/alerts"
	srHttp "github.com/carverauto/upswatch/pkg/http"
	"github.com/carverauto/upswatch/pkg/logger"
	"github.com/carverauto/upswatch/pkg/models"
	"github.com/carverauto/upswatch/pkg/snmp"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 2 * time.Minute
	defaultIdleTimeout  = 60 * time.Second
)

// APIServer serves live readings, history, discovery and rename over HTTP.
type APIServer struct {
	router     *mux.Router
	corsConfig models.CORSConfig
	listenAddr string

	inventory  Inventory
	querier    snmp.Querier
	snapshot   Snapshot
	history    HistoryReader
	discoverer Discoverer
	thresholds alerts.Thresholds
	metrics    http.Handler
	staticDir  string
	logger     logger.Logger
	now        func() time.Time

	mu     sync.Mutex
	server *http.Server
	done   chan struct{}
}

// NewAPIServer creates a new API server instance with the given configuration.
func NewAPIServer(config models.CORSConfig, options ...func(server *APIServer)) *APIServer {
	s := &APIServer{
		router:     mux.NewRouter(),
		corsConfig: config,
		thresholds: alerts.DefaultThresholds(),
		logger:     logger.NewTestLogger(),
		now:        time.Now,
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

func WithListenAddr(addr string) func(*APIServer) {
	return func(s *APIServer) {
		s.listenAddr = addr
	}
}

func WithInventory(inv Inventory) func(*APIServer) {
	return func(s *APIServer) {
		s.inventory = inv
	}
}

func WithQuerier(q snmp.Querier) func(*APIServer) {
	return func(s *APIServer) {
		s.querier = q
	}
}

// WithSnapshot lets readings endpoints answer ?cached=true from the last
// poll cycle.
func WithSnapshot(snap Snapshot) func(*APIServer) {
	return func(s *APIServer) {
		s.snapshot = snap
	}
}

func WithHistory(h HistoryReader) func(*APIServer) {
	return func(s *APIServer) {
		s.history = h
	}
}

func WithDiscoverer(d Discoverer) func(*APIServer) {
	return func(s *APIServer) {
		s.discoverer = d
	}
}

func WithThresholds(t alerts.Thresholds) func(*APIServer) {
	return func(s *APIServer) {
		s.thresholds = t
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) func(*APIServer) {
	return func(s *APIServer) {
		s.metrics = h
	}
}

// WithStaticDir serves files from dir at the root path.
func WithStaticDir(dir string) func(*APIServer) {
	return func(s *APIServer) {
		s.staticDir = dir
	}
}

func WithLogger(log logger.Logger) func(*APIServer) {
	return func(s *APIServer) {
		s.logger = log
	}
}

func (s *APIServer) setupRoutes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return srHttp.CommonMiddleware(next, s.corsConfig, s.logger)
	})

	s.router.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api").Subrouter()

	// history must be registered before the {id} route
	api.HandleFunc("/ups", s.listReadings).Methods(http.MethodGet)
	api.HandleFunc("/ups/history", s.getHistory).Methods(http.MethodGet)
	api.HandleFunc("/ups/{id}", s.getReading).Methods(http.MethodGet)
	api.HandleFunc("/ups/{id}/update", s.renameDevice).Methods(http.MethodPost)
	api.HandleFunc("/discover", s.discover).Methods(http.MethodPost)
	api.HandleFunc("/alerts", s.getAlerts).Methods(http.MethodGet)

	if s.staticDir != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.staticDir)))
	}
}

// Handler returns the routed handler, middleware included.
func (s *APIServer) Handler() http.Handler {
	return s.router
}

// Start binds the listen address and serves in the background.
func (s *APIServer) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	s.mu.Lock()
	s.server = srv
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP API listening")

	go func() {
		defer close(done)

		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP API server failed")
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *APIServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.server, s.done
	s.server = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	<-done

	return nil
}

// encodeJSONResponse encodes a response as JSON
func (*APIServer) encodeJSONResponse(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")

	return json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeErrorDetail(w, message, "", statusCode)
}

func writeErrorDetail(w http.ResponseWriter, message, detail string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errResponse := models.ErrorResponse{
		Error:   message,
		Message: detail,
	}

	if err := json.NewEncoder(w).Encode(errResponse); err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}
