package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/julienschmidt/httprouter"

	"carvio/pkg/config"
	"carvio/pkg/contracts"
	"carvio/pkg/middleware"
)

// Application assembles the router, the middleware chain, and the HTTP
// server, and owns graceful shutdown. Health endpoints bypass the heavy
// middleware so probes stay cheap and unthrottled.
type Application struct {
	cfg    *config.Config
	server *http.Server

	rateLimiter      *middleware.ClientRateLimiter
	idempotencyStore *middleware.InMemoryIdempotencyStore
}

func New(cfg *config.Config, apiHandlers []contracts.Handler, healthHandlers []contracts.Handler) *Application {
	apiRouter := httprouter.New()
	for _, h := range apiHandlers {
		h.RegisterRoutes(apiRouter)
	}

	healthRouter := httprouter.New()
	for _, h := range healthHandlers {
		h.RegisterRoutes(healthRouter)
	}

	rateLimiter := middleware.NewClientRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.Log)
	idempotencyStore := middleware.NewInMemoryIdempotencyStore(cfg.IdempotencyTTL)

	// Outermost first: recovery wraps everything, logging sees every
	// request, then throttling and body guards, session last so handlers
	// get the identity.
	chain := []func(http.Handler) http.Handler{
		middleware.Recovery(cfg.Log),
		middleware.RequestLogging(cfg.Log),
		middleware.RequestTimeout(cfg.RequestTimeout),
		middleware.RateLimit(rateLimiter),
		middleware.Idempotency(idempotencyStore, "Idempotency-Key"),
		middleware.MaxRequestSize(int64(cfg.MaxRequestSize)),
		middleware.ContentTypeValidation(cfg.Log),
	}
	if cfg.JWTSecret != "" {
		chain = append(chain, middleware.Session(cfg.JWTSecret, cfg.SessionCookie, cfg.Log))
	}

	var api http.Handler = apiRouter
	for i := len(chain) - 1; i >= 0; i-- {
		api = chain[i](api)
	}

	var health http.Handler = healthRouter
	health = middleware.Recovery(cfg.Log)(health)

	mux := http.NewServeMux()
	mux.Handle("/health", health)
	mux.Handle("/ready", health)
	mux.Handle("/", api)

	return &Application{
		cfg: cfg,
		server: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      mux,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		rateLimiter:      rateLimiter,
		idempotencyStore: idempotencyStore,
	}
}

// Run blocks until SIGINT or SIGTERM, then drains in-flight requests and
// closes the backing clients.
func (a *Application) Run() error {
	errCh := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("HTTP server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("HTTP server shutdown failed", "error", err)
	}

	a.rateLimiter.Stop()
	a.idempotencyStore.Stop()
	a.cfg.GracefulShutdown()

	a.cfg.Log.Info("Shutdown complete")
	return nil
}
