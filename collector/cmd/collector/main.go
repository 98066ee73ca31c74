package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/glimpsebox/glimpse/collector/internal/alerts"
	"github.com/glimpsebox/glimpse/collector/internal/api"
	"github.com/glimpsebox/glimpse/collector/internal/auth"
	"github.com/glimpsebox/glimpse/collector/internal/config"
	"github.com/glimpsebox/glimpse/collector/internal/receiver"
	"github.com/glimpsebox/glimpse/collector/internal/store"
	"github.com/glimpsebox/glimpse/collector/internal/ws"
)

// wsRefresh is how often the hub re-sends a full snapshot so live view
// clients that missed capture events can reconcile.
const wsRefresh = 30 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	uiDir := flag.String("ui-dir", "", "serve live view static files from this directory; leave empty to disable")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("glimpse-collector starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Collector.HTTPPort,
		"retention_ttl", cfg.Collector.Retention.TTL,
		"rate_limit_per_minute", cfg.Collector.RateLimit.RequestsPerMinute,
		"alert_rules", len(cfg.Collector.Alerts.Rules),
		"auth_enabled", cfg.Collector.Auth.Token() != "",
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Latest-capture store with background TTL eviction.
	st := store.New(cfg.Collector.Retention.TTL)
	go st.Run(ctx)

	// Silence alerting: tracks per-subject delivery and sweeps periodically.
	alertEngine := alerts.New(cfg.Collector.Alerts)
	go alertEngine.Run(ctx)

	// WebSocket hub for the live view.
	hub := ws.New(st, wsRefresh)
	go hub.Run(ctx)

	// Upload path: token check, then rate limit, then the receiver.
	rec := receiver.New(st, alertEngine, hub)
	ingest := auth.TokenMiddleware(cfg.Collector.Auth.Token())(
		receiver.RateLimit(cfg.Collector.RateLimit.RequestsPerMinute)(rec),
	)

	apiHandler := api.New(st, alertEngine)

	httpMux := http.NewServeMux()
	// POST is the agent upload path; every other method falls through to the
	// read API, which answers GET and rejects the rest.
	httpMux.HandleFunc("/api/v1/captures", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			ingest.ServeHTTP(w, r)
			return
		}
		apiHandler.ServeHTTP(w, r)
	})
	httpMux.Handle("/api/", apiHandler)
	httpMux.Handle("/ws/live", hub)
	httpMux.Handle("/metrics", promhttp.Handler())

	// Optional: serve a pre-built live view UI from a local directory.
	// The "/" catch-all serves index.html for any unknown path (SPA routing).
	if *uiDir != "" {
		fs := http.FileServer(http.Dir(*uiDir))
		httpMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			path := *uiDir + r.URL.Path
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, r, *uiDir+"/index.html")
				return
			}
			fs.ServeHTTP(w, r)
		})
		slog.Info("serving live view static files", "dir", *uiDir)
	}

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Collector.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Collector.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("glimpse-collector shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
