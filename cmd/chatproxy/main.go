// Command chatproxy runs the streaming chat proxy standalone.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/avasile/agentwire/internal/config"
	"github.com/avasile/agentwire/internal/proxy"
	"github.com/avasile/agentwire/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdown, err := telemetry.Init("agentwire-proxy", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	srv := proxy.New(cfg.Proxy.Port, logger)
	if err := srv.Start(); err != nil {
		log.Fatalf("Proxy server failed: %v", err)
	}
}
