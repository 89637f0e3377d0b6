// Kestrel - RFM customer segmentation for transactional datasets.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/pipeline"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", defaultString("KESTREL_CONFIG", "kestrel.yaml"), "path to the YAML configuration file")
	sourceID := flag.String("source", "", "source ID to segment (required)")
	sinkID := flag.String("sink", "", "sink ID to write to (omit to run without export)")
	debug := flag.Bool("debug", os.Getenv("KESTREL_DEBUG") == "true", "enable debug logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting kestrel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	if *sourceID == "" {
		slog.Error("a source ID is required (-source)")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("configuration loaded",
		"config", *configPath,
		"variables", len(cfg.Variables),
		"categories", len(cfg.Categories),
		"score_method", cfg.ScoreMethod,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	runner, err := pipeline.NewRunner(cfg, logger, time.Now())
	if err != nil {
		slog.Error("failed to prepare segmentation run", "error", err)
		os.Exit(1)
	}

	start, end := runner.Window()
	slog.Info("analysis window resolved",
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
	)

	res, err := runner.Run(ctx, *sourceID, *sinkID)
	if err != nil {
		slog.Error("segmentation run failed", "error", err)
		os.Exit(1)
	}

	slog.Info("done",
		"run_id", res.RunID,
		"customers", len(res.Rows),
		"elapsed", res.Elapsed.String(),
	)
}

func defaultString(env, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}
