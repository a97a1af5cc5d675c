// Package server exposes the portal core to the browser shell as a thin
// JSON API. Handlers only translate; business rules live in the services.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"domebooking/internal/availability"
	"domebooking/internal/config"
	"domebooking/internal/domain"
	"domebooking/internal/events"
	"domebooking/internal/session"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type HTTPServer struct {
	cfg          config.ServerConfig
	sessions     *session.Machine
	resolver     *availability.Resolver
	facilities   domain.FacilityProvider
	cancellation domain.CancellationBackend
	bus          *events.Bus
	logger       *zerolog.Logger
	limiter      *rateLimiter
	server       *http.Server
}

func NewHTTPServer(
	cfg config.ServerConfig,
	sessions *session.Machine,
	resolver *availability.Resolver,
	facilities domain.FacilityProvider,
	cancellation domain.CancellationBackend,
	bus *events.Bus,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:          cfg,
		sessions:     sessions,
		resolver:     resolver,
		facilities:   facilities,
		cancellation: cancellation,
		bus:          bus,
		logger:       logger,
		limiter:      newRateLimiter(cfg.RateLimit),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/slots", srv.handleSlots)
	mux.HandleFunc("/api/v1/session", srv.handleCreateSession)
	mux.HandleFunc("/api/v1/session/", srv.handleSession)
	mux.HandleFunc("/api/v1/cancellation/", srv.handleCancellation)
	mux.HandleFunc("/api/v1/refresh", srv.handleRefresh)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	handler := srv.loggingMiddleware(srv.authMiddleware(srv.rateLimitMiddleware(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// authMiddleware requires an API key only when keys are configured; the
// customer-facing portal normally runs open behind its own origin.
func (s *HTTPServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.cfg.APIKeys) == 0 || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		provided := r.Header.Get(s.cfg.HeaderAPIKey)
		for _, key := range s.cfg.APIKeys {
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key.Key)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}
		writeError(w, http.StatusUnauthorized, "invalid api key")
	})
}

func (s *HTTPServer) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiter.getLimiter(host).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}
