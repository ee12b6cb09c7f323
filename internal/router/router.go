package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"metrics-dashboard/internal/config"
	"metrics-dashboard/internal/domain"
	"metrics-dashboard/internal/endpoints"
	"metrics-dashboard/internal/telemetry"
	"metrics-dashboard/internal/util"
)

const (
	RequestIDHeader = "X-Request-ID"
	shutdownTimeout = 25 * time.Second

	// unmatchedRoute labels 404 and 405 responses in telemetry.
	unmatchedRoute = "unmatched"
)

func NewRouter(metricStore domain.MetricStore, cfg *config.Config, webSlogger *util.MetricsLogger, stats *telemetry.Metrics) *mux.Router {
	r := mux.NewRouter()

	addRoutes(r, metricStore, cfg, webSlogger, stats)

	middlewares := []mux.MiddlewareFunc{
		requestIDMiddleware,
		loggingMiddleware(webSlogger),
		instrumentMiddleware(stats),
	}
	r.Use(middlewares...)

	// mux skips r.Use middleware for these two, so they get the chain explicitly.
	r.NotFoundHandler = chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		endpoints.WriteErrorResponse(w, endpoints.ErrNotFound)
	}), middlewares)
	r.MethodNotAllowedHandler = chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		endpoints.WriteErrorResponse(w, endpoints.ErrMethodNotAllowed)
	}), middlewares)

	return r
}

// chain wraps h so that middlewares[0] runs first.
func chain(h http.Handler, middlewares []mux.MiddlewareFunc) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i].Middleware(h)
	}
	return h
}

func addRoutes(r *mux.Router, metricStore domain.MetricStore, cfg *config.Config, webSlogger *util.MetricsLogger, stats *telemetry.Metrics) {

	metricsHandler := &endpoints.Metrics{}
	metricsHandler.Init(metricStore, cfg, webSlogger, stats)

	r.HandleFunc("/metrics", metricsHandler.AddMetricHandler).Methods(http.MethodPost)
	r.HandleFunc("/metrics", metricsHandler.GetMetricsHandler).Methods(http.MethodGet)
	r.HandleFunc("/truncate-metrics", metricsHandler.TruncateMetricsHandler).Methods(http.MethodPost)
	r.HandleFunc("/healthz", metricsHandler.HealthHandler).Methods(http.MethodGet)

	if cfg.TelemetryPath != "" {
		r.Handle(cfg.TelemetryPath, stats.Handler()).Methods(http.MethodGet)
	}
}

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func Run(metricStore domain.MetricStore, cfg *config.Config, webSlogger *util.MetricsLogger, stats *telemetry.Metrics) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Serve(ctx, NewServer(cfg.Listen, NewRouter(metricStore, cfg, webSlogger, stats)), webSlogger)
}

// Serve runs server until ctx is done.
func Serve(ctx context.Context, server *http.Server, webSlogger *util.MetricsLogger) error {
	errCh := make(chan error, 1)
	go func() {
		webSlogger.LogEvent(util.LOG_LEVEL_INFO, "Listening on", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	webSlogger.LogEvent(util.LOG_LEVEL_INFO, "Shutting down server...")

	if err := gracefulShutdown(server, shutdownTimeout); err != nil {
		webSlogger.LogEvent(util.LOG_LEVEL_ERROR, "Server stopped with error:", err)
		return err
	}
	webSlogger.LogEvent(util.LOG_LEVEL_INFO, "Server stopped gracefully.")
	return nil
}

func gracefulShutdown(server *http.Server, maximumTime time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), maximumTime)
	defer cancel()

	return server.Shutdown(ctx)
}

// requestIDMiddleware keeps a caller-supplied X-Request-ID or assigns a new one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger *util.MetricsLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.LogEvent(util.LOG_LEVEL_INFO, fmt.Sprintf("Request: %s %s id=%s", r.Method, r.RequestURI, r.Header.Get(RequestIDHeader)))
			next.ServeHTTP(w, r)
		})
	}
}

func instrumentMiddleware(stats *telemetry.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := unmatchedRoute
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}

			m := httpsnoop.CaptureMetrics(next, w, r)
			stats.RecordRequest(route, r.Method, strconv.Itoa(m.Code), m.Duration.Seconds())
		})
	}
}
