package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"velocityFee/internal/config"
	"velocityFee/internal/model"
	"velocityFee/internal/storage/postgres"
	"velocityFee/internal/tier"
)

func runOverride(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadOverride(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Engine.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(cfg.Pools) == 0 && cfg.NewAuthority == "" {
		return fmt.Errorf("at least one pool is required")
	}

	at, err := config.ParseTimestamp(cfg.At)
	if err != nil {
		return fmt.Errorf("parse at: %w", err)
	}
	if at == 0 {
		at = uint64(time.Now().Unix())
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

	if cfg.NewAuthority != "" {
		if err := engine.ChangeAuthority(tier.Capability(cfg.Engine.AdminToken), tier.Capability(cfg.NewAuthority)); err != nil {
			return fmt.Errorf("rotate authority: %w", err)
		}
		logger.Info("override authority rotated")
		if len(cfg.Pools) == 0 {
			return nil
		}
	}

	keys := make([]model.PoolKey, 0, len(cfg.Pools))
	for _, pool := range cfg.Pools {
		keys = append(keys, model.NormalizePoolKey(pool))
	}

	if cfg.Reset {
		for _, key := range keys {
			if err := engine.ResetState(tier.Capability(cfg.Engine.AdminToken), key, at); err != nil {
				return fmt.Errorf("reset %s: %w", key, err)
			}
			logger.Info("state reset", zap.String("pool", key.String()), zap.Uint64("at", at))
		}
		return persistTiers(ctx, engine, store, keys)
	}

	if len(cfg.Tiers) != len(keys) {
		return fmt.Errorf("tier count %d does not match pool count %d", len(cfg.Tiers), len(keys))
	}
	values := make([]uint8, 0, len(cfg.Tiers))
	for _, value := range cfg.Tiers {
		if value > uint(tier.MaxTier) {
			return fmt.Errorf("tier %d out of range", value)
		}
		values = append(values, uint8(value))
	}

	authority := tier.Capability(cfg.Engine.AuthorityToken)
	if cfg.NewAuthority != "" {
		// A rotation in the same invocation revokes the configured token.
		authority = tier.Capability(cfg.NewAuthority)
	}
	applied, err := engine.SetTierBatch(authority, keys, values, at)
	if err != nil {
		return err
	}

	logger.Info("override applied",
		zap.Int("requested", len(keys)),
		zap.Int("applied", len(applied)),
		zap.Uint64("at", at),
	)
	for _, key := range applied {
		logger.Info("tier set", zap.String("pool", key.String()), zap.Uint8("tier", engine.GetTier(key)))
	}

	return persistTiers(ctx, engine, store, applied)
}

func persistTiers(ctx context.Context, engine *tier.Engine, store *postgres.Store, keys []model.PoolKey) error {
	if store == nil || len(keys) == 0 {
		return nil
	}
	snapshots := make([]model.TierSnapshot, 0, len(keys))
	for _, key := range keys {
		snapshot := model.TierSnapshot{Pool: key.String(), EMA: "0"}
		if state, ok := engine.TierStateOf(key); ok {
			snapshot.Tier = state.Tier
			snapshot.LastTierWriteTime = state.LastTierWriteTime
		}
		if observation, ok := engine.ObservationOf(key); ok {
			if observation.EMA != nil {
				snapshot.EMA = observation.EMA.String()
			}
			snapshot.LastObserved = observation.LastTimestamp
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := store.UpsertTierStates(ctx, snapshots); err != nil {
		return fmt.Errorf("persist tier states: %w", err)
	}
	return nil
}
