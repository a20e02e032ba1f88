package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"velocityFee/internal/config"
	"velocityFee/internal/storage"
	"velocityFee/internal/storage/postgres"
	"velocityFee/internal/tier"
)

func main() {
	root := &cobra.Command{
		Use:          "feehook",
		Short:        "Per-pool activity tier engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded swaps through the tier engine",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input swap records JSONL")
	replayCmd.Flags().Int("batch-size", 1000, "records per persistence batch")
	replayCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	replayCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	addEngineFlags(replayCmd)

	root.AddCommand(replayCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Ingest live Swap logs into the tier engine",
		RunE:  runWatch,
	}

	watchCmd.Flags().String("rpc", "", "RPC URL")
	watchCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	watchCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	watchCmd.Flags().StringSlice("address", nil, "pool addresses (comma-separated)")
	watchCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	watchCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	watchCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	watchCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	watchCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	addEngineFlags(watchCmd)

	root.AddCommand(watchCmd)

	overrideCmd := &cobra.Command{
		Use:   "override",
		Short: "Apply manual tier overrides",
		RunE:  runOverride,
	}

	overrideCmd.Flags().StringSlice("pool", nil, "pool addresses (comma-separated)")
	overrideCmd.Flags().IntSlice("tier", nil, "tier values, one per pool")
	overrideCmd.Flags().String("at", "", "override timestamp (unix seconds or RFC3339, default now)")
	overrideCmd.Flags().Bool("reset", false, "reset pool state instead of setting a tier")
	overrideCmd.Flags().String("new-authority", "", "rotate the override authority to this capability token")
	addEngineFlags(overrideCmd)

	root.AddCommand(overrideCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("params-file", "", "pool parameters file (YAML or JSON)")
	cmd.Flags().String("admin-token", "", "admin capability token")
	cmd.Flags().String("authority-token", "", "override authority capability token")
	cmd.Flags().Uint64("cooldown", 60, "override cooldown in seconds")
	cmd.Flags().String("events-out", "", "tier events JSONL output path")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

// buildEngine wires sinks, store, and parameters into a tier engine.
// The returned store is nil when no DSN is configured.
func buildEngine(ctx context.Context, cfg config.EngineConfig, logger *zap.Logger) (*tier.Engine, *postgres.Store, error) {
	var sinks storage.MultiSink
	if cfg.EventsOut != "" {
		sinks = append(sinks, storage.NewJsonlSink(cfg.EventsOut, logger))
	}

	var store *postgres.Store
	if cfg.PGDSN != "" {
		var err error
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		sinks = append(sinks, storage.NewPgEventSink(store, logger))
	}

	var events tier.EventSink
	if len(sinks) > 0 {
		events = sinks
	}

	engine := tier.NewEngine(tier.Config{
		AdminCap:        tier.Capability(cfg.AdminToken),
		AuthorityCap:    tier.Capability(cfg.AuthorityToken),
		CooldownSeconds: cfg.Cooldown,
		Events:          events,
	}, logger)

	if cfg.ParamsFile != "" {
		records, err := config.LoadPoolParams(cfg.ParamsFile)
		if err != nil {
			if store != nil {
				store.Close()
			}
			return nil, nil, err
		}
		for _, record := range records {
			if err := engine.SetParameters(tier.Capability(cfg.AdminToken), record.Pool, record.Params); err != nil {
				if store != nil {
					store.Close()
				}
				return nil, nil, fmt.Errorf("configure pool %s: %w", record.Pool, err)
			}
		}
		if store != nil {
			paramsRecords := make([]postgres.ParamsRecord, 0, len(records))
			for _, record := range records {
				paramsRecords = append(paramsRecords, postgres.ParamsRecord{
					Pool:   record.Pool.String(),
					Params: record.Params,
				})
			}
			if err := store.UpsertPoolParams(ctx, paramsRecords); err != nil {
				store.Close()
				return nil, nil, fmt.Errorf("persist pool params: %w", err)
			}
		}
		logger.Info("pool parameters loaded", zap.Int("pools", len(records)), zap.String("file", cfg.ParamsFile))
	}

	return engine, store, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
