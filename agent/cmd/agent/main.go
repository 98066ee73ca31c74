package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/glimpsebox/glimpse/agent/internal/config"
	"github.com/glimpsebox/glimpse/agent/internal/pipeline"
	"github.com/glimpsebox/glimpse/agent/internal/security"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	once := flag.Bool("once", false, "capture and upload one pass, then exit")
	check := flag.Bool("check", false, "print pipeline status, probe the collector, then exit")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("glimpse-agent starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"endpoint_configured", cfg.Agent.CollectorEndpoint != "",
		"capture_interval", cfg.Agent.CaptureInterval,
		"storage_dir", cfg.Agent.StorageDir,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctrl := pipeline.New(cfg.Agent)

	if *check {
		out, _ := json.MarshalIndent(ctrl.Status(), "", "  ")
		fmt.Println(string(out))
		if cert := security.Check(ctx, cfg.Agent.CollectorEndpoint); cert != nil {
			slog.Info("collector certificate",
				"status", cert.Status,
				"issuer", cert.Issuer,
				"days_left", cert.DaysLeft,
				"not_after", cert.NotAfter,
			)
		}
		if err := ctrl.TestConnection(ctx); err != nil {
			slog.Error("collector unreachable", "err", err)
			os.Exit(1)
		}
		slog.Info("collector reachable")
		return
	}

	if *once {
		arts := ctrl.CaptureNow(ctx)
		slog.Info("one-shot capture complete",
			"artifacts", len(arts),
			"queued", ctrl.Status().QueueDepth)
		return
	}

	// Watch the config file so collector target and retry policy changes
	// apply without a restart.
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			ctrl.ApplyConfig(updated.Agent)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	ctrl.Start()

	<-ctx.Done()
	ctrl.Stop()
	slog.Info("glimpse-agent shutting down")
}
