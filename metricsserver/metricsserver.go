// Package metricsserver serves the prometheus registry over HTTP.
package metricsserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/velvetrope/doorman/logger"
)

// Server wraps a prometheus registry with an HTTP endpoint.
type Server struct {
	registry *prometheus.Registry
}

// New creates a metrics server with go runtime and process collectors
// pre-registered.
func New() *Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &Server{registry: reg}
}

// Registry returns the registry for application metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Handler returns the HTTP handler exposing /metrics.
func (s *Server) Handler(log *slog.Logger) http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Use(otelecho.Middleware("metrics"))
	e.Use(slogecho.New(log))

	e.GET("/metrics", echo.WrapHandler(
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}),
	))

	return e
}

// ListenAndServe serves /metrics until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	log := logger.FromContext(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
