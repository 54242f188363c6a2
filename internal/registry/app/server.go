// Package app wires the registry runtime: storage, state replay, the
// HTTP API, and the serve loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linktrue/linktrue/internal/registry/api/httpapi"
	"github.com/linktrue/linktrue/internal/registry/service"
	registrysqlite "github.com/linktrue/linktrue/internal/registry/storage/sqlite"
)

const (
	defaultPort            = 8080
	defaultShutdownTimeout = 5 * time.Second
	readHeaderTimeout      = 10 * time.Second
)

// RuntimeConfig controls registry service startup and dependency wiring.
type RuntimeConfig struct {
	Port            int
	StoragePath     string
	ShutdownTimeout time.Duration
}

// Run starts the registry HTTP runtime until context cancellation.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.StoragePath) == "" {
		return fmt.Errorf("storage path is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	store, err := registrysqlite.Open(cfg.StoragePath)
	if err != nil {
		return fmt.Errorf("open registry storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close registry storage: %v", closeErr)
		}
	}()

	registry := service.New(store, store)
	if err := registry.Restore(ctx); err != nil {
		return fmt.Errorf("restore registry state: %w", err)
	}

	handler := httpapi.NewHandler(registry)
	mux := handler.Routes()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           otelhttp.NewHandler(mux, "registry"),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	log.Printf("registry listening on %s", httpServer.Addr)
	go func() {
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve registry: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown registry: %w", err)
	}
	log.Printf("registry stopped")
	return nil
}
