package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"velocityFee/internal/config"
	"velocityFee/internal/ingest"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Engine.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Engine.ParamsFile == "" {
		return fmt.Errorf("params file is required")
	}

	recomputeFrom, err := config.ParseTimestamp(cfg.RecomputeFrom)
	if err != nil {
		return fmt.Errorf("parse recompute-from: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, store, err := buildEngine(ctx, cfg.Engine, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	var stateStore ingest.StateStore
	if cfg.StateFile != "" {
		stateStore = &ingest.FileStateStore{Path: cfg.StateFile}
	} else if store != nil {
		stateStore = &ingest.DBStateStore{Store: store, Name: "replay"}
	}

	replayer := ingest.NewReplayer(ingest.ReplayConfig{
		BatchSize:     cfg.BatchSize,
		RecomputeFrom: recomputeFrom,
		StateStore:    stateStore,
	}, engine, store, logger)

	logger.Info("replay start",
		zap.String("input", cfg.Input),
		zap.String("pg_dsn", redactDSN(cfg.Engine.PGDSN)),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Uint64("recompute_from", recomputeFrom),
	)

	return replayer.Run(ctx, cfg.Input)
}
