// Package registry parses registry service flags and launches the
// service.
package registry

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/linktrue/linktrue/internal/platform/cmd"
	server "github.com/linktrue/linktrue/internal/registry/app"
)

// Config holds registry command configuration.
type Config struct {
	Port        int    `env:"LINKTRUE_REGISTRY_PORT" envDefault:"8080"`
	StoragePath string `env:"LINKTRUE_REGISTRY_DB" envDefault:"registry.db"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The registry HTTP server port")
	fs.StringVar(&cfg.StoragePath, "db", cfg.StoragePath, "Path to the registry SQLite database")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the registry HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRegistry, func(context.Context) error {
		return server.Run(ctx, server.RuntimeConfig{
			Port:            cfg.Port,
			StoragePath:     cfg.StoragePath,
			ShutdownTimeout: 5 * time.Second,
		})
	})
}
