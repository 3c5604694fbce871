// Package gateway is the HTTP frontend for the asset store: one endpoint
// that maps query parameters and request bodies into acquire+update calls
// against a store.Store, rendering the resulting action.CallResult back as
// JSON (or whatever MIME type the action selected).
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"assetstore.evalgo.org/applog"
)

// Config controls the middleware stack and listen behavior of the echo
// server wrapping the asset store.
type Config struct {
	Port            int
	Debug           bool
	BodyLimit       string // e.g. "1M"; the store contract's default request-body cap
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	RateLimit       float64 // requests/sec per client IP, 0 = unlimited
}

// DefaultConfig returns a Config matching the external-interface contract's
// defaults: a 1 MiB body cap, permissive CORS, and no rate limit.
func DefaultConfig() Config {
	return Config{
		Port:            8080,
		Debug:           false,
		BodyLimit:       "1M",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigins:  []string{"*"},
		RateLimit:       0,
	}
}

// NewEchoServer builds an *echo.Echo with the standard middleware stack —
// logger, panic recovery, body limit, CORS, request id, and an optional
// per-process rate limiter — then registers the single asset endpoint
// against h.
func NewEchoServer(cfg Config, h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Debug
	e.HTTPErrorHandler = CustomHTTPErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${time_rfc3339}] ${status} ${method} ${uri} (${latency_human}) id=${id}\n",
	}))
	e.Use(middleware.Recover())

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}

	e.Use(middleware.RequestID())

	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit))))
	}

	if h.Bridge != nil {
		e.Use(h.Bridge.Middleware())
	}

	e.Any("/*", h.ServeAsset)
	e.GET("/healthz", HealthCheckHandler("assetstore", h.Version))

	return e
}

// HealthResponse is the liveness-probe payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
	Version string `json:"version,omitempty"`
}

// HealthCheckHandler returns a handler reporting process liveness; it says
// nothing about backend health, since the store has no independent ping.
func HealthCheckHandler(service, version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Service: service, Version: version})
	}
}

// StartServer runs e on cfg.Port until the process is asked to stop.
func StartServer(e *echo.Echo, cfg Config) error {
	s := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	applog.Base.WithField("port", cfg.Port).Info("starting gateway")
	return e.StartServer(s)
}

// GracefulShutdown stops e within cfg.ShutdownTimeout, letting in-flight
// requests complete.
func GracefulShutdown(e *echo.Echo, cfg Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	applog.Base.Info("shutting down gateway")
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("gateway: shutdown failed: %w", err)
	}
	return nil
}
