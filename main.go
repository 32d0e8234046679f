package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/keepstack/mnemo/cmd"
	"github.com/keepstack/mnemo/internal/config"
	"github.com/keepstack/mnemo/internal/tracing"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	// Tracing is config-driven and optional; errors here must not block the
	// CLI.
	if cfg, err := config.Load(config.DefaultPath()); err == nil && cfg.Tracing.Endpoint != "" {
		shutdown, err := tracing.Setup(context.Background(), tracing.Config{
			Endpoint:    cfg.Tracing.Endpoint,
			Protocol:    cfg.Tracing.Protocol,
			Insecure:    cfg.Tracing.Insecure,
			ServiceName: cfg.Tracing.ServiceName,
		})
		if err != nil {
			slog.Warn("tracing setup failed", "err", err)
		} else if shutdown != nil {
			defer shutdown(context.Background())
		}
	}

	cmd.Execute()
}
