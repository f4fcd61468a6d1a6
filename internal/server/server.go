package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const WebhookPath = "/telegram/webhook"

// Server exposes health, metrics and, in webhook mode, the Telegram webhook.
type Server struct {
	srv *http.Server
}

// NewRouter builds the HTTP routes. webhook may be nil when the bot polls.
func NewRouter(webhook http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	if webhook != nil {
		r.Post(WebhookPath, webhook.ServeHTTP)
	}
	return r
}

func New(addr string, webhook http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(webhook),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	zap.S().Infow("Started HTTP server", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
