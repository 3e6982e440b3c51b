// Package net assembles the server's HTTP surface: the websocket endpoint,
// health and debug routes, and optional static client hosting.
package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"rundash/server/internal/net/ws"
	"rundash/server/internal/observability"
	"rundash/server/internal/relay"
	"rundash/server/internal/telemetry"
	"rundash/server/logging"
)

type HTTPHandlerConfig struct {
	ClientDir     string
	Logger        *log.Logger
	Publisher     logging.Publisher
	Counters      *telemetry.Counters
	Router        *logging.Router
	Observability observability.Config
}

// NewHTTPHandler builds the full route tree around the given room registry.
func NewHTTPHandler(registry relay.Registry, cfg HTTPHandlerConfig) nethttp.Handler {
	wsHandler := ws.NewHandler(registry, ws.HandlerConfig{
		Logger:    cfg.Logger,
		Publisher: cfg.Publisher,
		Metrics:   cfg.Counters,
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))

	r.Get("/ws", wsHandler.Handle)

	r.Get("/debug/rooms", func(w nethttp.ResponseWriter, req *nethttp.Request) {
		writeJSON(w, map[string]any{
			"serverTime": time.Now().UnixMilli(),
			"rooms":      registry.Summaries(),
		})
	})

	r.Get("/debug/telemetry", func(w nethttp.ResponseWriter, req *nethttp.Request) {
		payload := map[string]any{}
		if cfg.Counters != nil {
			payload["counters"] = cfg.Counters.Snapshot()
		}
		if cfg.Router != nil {
			stats := cfg.Router.Stats()
			payload["logging"] = map[string]uint64{
				"eventsTotal":  stats.EventsTotal,
				"droppedTotal": stats.DroppedTotal,
			}
		}
		writeJSON(w, payload)
	})

	if cfg.Observability.EnablePprofTrace {
		r.Mount("/debug", middleware.Profiler())
	}

	if cfg.ClientDir != "" {
		r.Handle("/*", nethttp.FileServer(nethttp.Dir(cfg.ClientDir)))
	}

	return r
}

func writeJSON(w nethttp.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
