// Package server exposes the HTTP interface for the harvesting service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/geoharbor/mapharvest/internal/harvest"
	"github.com/geoharbor/mapharvest/internal/store"
)

// Detector probes an endpoint and registers the matching services.
type Detector interface {
	Detect(ctx context.Context, rawURL string) (bool, string)
}

// Harvester syncs the layers of one registered service.
type Harvester interface {
	Harvest(ctx context.Context, svc harvest.Service) error
}

// Server wires HTTP handlers to the detector, harvester and catalog.
type Server struct {
	router    chi.Router
	detector  Detector
	harvester Harvester
	catalog   harvest.Catalog
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(detector Detector, harvester Harvester, catalog harvest.Catalog, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		detector:  detector,
		harvester: harvester,
		catalog:   catalog,
		logger:    logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(120 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/endpoints", s.submitEndpoint)
		r.Route("/services", func(r chi.Router) {
			r.Get("/", s.getService)
			r.Post("/harvest", s.harvestService)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type endpointRequest struct {
	URL string `json:"url"`
}

// submitEndpoint runs the detection battery against the submitted URL.
// The response always carries the human-readable outcome message; a miss
// is a 200 with detected=false, not an error.
func (s *Server) submitEndpoint(w http.ResponseWriter, r *http.Request) {
	var req endpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "missing endpoint url")
		return
	}
	detected, message := s.detector.Detect(r.Context(), req.URL)
	writeJSON(w, http.StatusOK, map[string]any{
		"detected": detected,
		"message":  message,
	})
}

func (s *Server) getService(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "missing url parameter")
		return
	}
	svc, err := s.catalog.GetService(r.Context(), rawURL)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "service not registered")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":      svc.URL,
		"type":     string(svc.Type),
		"title":    svc.Title,
		"abstract": svc.Abstract,
	})
}

func (s *Server) harvestService(w http.ResponseWriter, r *http.Request) {
	var req endpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "missing endpoint url")
		return
	}
	svc, err := s.catalog.GetService(r.Context(), req.URL)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "service not registered")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.harvester.Harvest(r.Context(), svc); err != nil {
		s.logger.Error("harvest failed", zap.String("url", svc.URL), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "harvested"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()))
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
