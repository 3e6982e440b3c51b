// Package app assembles the relay server: configuration, logging router,
// telemetry, the room registry, and the HTTP surface.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	servernet "rundash/server/internal/net"
	"rundash/server/internal/observability"
	"rundash/server/internal/relay"
	"rundash/server/internal/telemetry"
	"rundash/server/logging"
	loggingSinks "rundash/server/logging/sinks"
)

type Config struct {
	Logger        telemetry.Logger
	Observability observability.Config
}

func Run(ctx context.Context, cfg Config) error {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	logCfg := loadLogConfig(telemetryLogger)
	named := buildSinks(logCfg, telemetryLogger)
	router, err := logging.NewRouter(nil, logCfg, named)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	counters := telemetry.NewCounters()

	countdown := 3 * time.Second
	if raw := os.Getenv("RUNDASH_COUNTDOWN_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			countdown = time.Duration(value) * time.Millisecond
		} else {
			telemetryLogger.Printf("invalid RUNDASH_COUNTDOWN_MS=%q: %v", raw, err)
		}
	}

	registry := relay.NewRegistry(relay.Options{
		Countdown: countdown,
		Publisher: router,
		Metrics:   counters,
	})

	observabilityCfg := cfg.Observability
	if raw := os.Getenv("RUNDASH_ENABLE_PPROF"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			observabilityCfg.EnablePprofTrace = value
		} else {
			telemetryLogger.Printf("invalid RUNDASH_ENABLE_PPROF=%q: %v", raw, err)
		}
	}

	handler := servernet.NewHTTPHandler(registry, servernet.HTTPHandlerConfig{
		ClientDir:     os.Getenv("RUNDASH_CLIENT_DIR"),
		Publisher:     router,
		Counters:      counters,
		Router:        router,
		Observability: observabilityCfg,
	})

	addr := os.Getenv("RUNDASH_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			telemetryLogger.Printf("shutdown failed: %v", err)
		}
	}()

	telemetryLogger.Printf("server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func loadLogConfig(logger telemetry.Logger) logging.Config {
	cfg := logging.DefaultConfig()
	if raw := os.Getenv("RUNDASH_LOG_SINKS"); raw != "" {
		var enabled []string
		for _, name := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				enabled = append(enabled, trimmed)
			}
		}
		if len(enabled) > 0 {
			cfg.EnabledSinks = enabled
		}
	}
	if raw := os.Getenv("RUNDASH_LOG_MIN_SEVERITY"); raw != "" {
		switch strings.ToLower(raw) {
		case "debug":
			cfg.MinimumSeverity = logging.SeverityDebug
		case "info":
			cfg.MinimumSeverity = logging.SeverityInfo
		case "warn":
			cfg.MinimumSeverity = logging.SeverityWarn
		case "error":
			cfg.MinimumSeverity = logging.SeverityError
		default:
			logger.Printf("invalid RUNDASH_LOG_MIN_SEVERITY=%q", raw)
		}
	}
	if raw := os.Getenv("RUNDASH_LOG_JSON_PATH"); raw != "" {
		cfg.JSON.FilePath = raw
	}
	return cfg
}

func buildSinks(cfg logging.Config, logger telemetry.Logger) []logging.NamedSink {
	var named []logging.NamedSink
	if cfg.HasSink("console") {
		named = append(named, logging.NamedSink{
			Name: "console",
			Sink: loggingSinks.NewConsoleSink(os.Stdout, cfg.Console),
		})
	}
	if cfg.HasSink("json") && cfg.JSON.FilePath != "" {
		file, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Printf("failed to open json log %s: %v", cfg.JSON.FilePath, err)
		} else {
			named = append(named, logging.NamedSink{
				Name: "json",
				Sink: loggingSinks.NewJSON(file, cfg.JSON.FlushInterval),
			})
		}
	}
	return named
}

