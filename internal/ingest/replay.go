package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"velocityFee/internal/model"
	"velocityFee/internal/storage/postgres"
	"velocityFee/internal/tier"
)

// ReplayConfig controls replay behavior.
type ReplayConfig struct {
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
}

// Replayer streams recorded swap events through the tier engine,
// periodically persisting tier snapshots and resumable progress.
type Replayer struct {
	cfg     ReplayConfig
	engine  *tier.Engine
	store   *postgres.Store
	logger  *zap.Logger
	touched map[model.PoolKey]struct{}
}

// NewReplayer builds a Replayer. store may be nil for a dry run.
func NewReplayer(cfg ReplayConfig, engine *tier.Engine, store *postgres.Store, logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{
		cfg:     cfg,
		engine:  engine,
		store:   store,
		logger:  logger,
		touched: make(map[model.PoolKey]struct{}),
	}
}

// Run executes a replay over a swap records JSONL file.
func (r *Replayer) Run(ctx context.Context, inputPath string) error {
	if r.engine == nil {
		return fmt.Errorf("engine is nil")
	}
	if r.cfg.BatchSize <= 0 {
		r.cfg.BatchSize = 1000
	}

	startTs, err := r.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	maxTs := startTs
	var total, applied, ignored, tierChanges, skipped, failed int
	sinceFlush := 0

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.SwapRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			r.logger.Warn("decode swap record", zap.Error(err))
			continue
		}

		if record.Timestamp <= startTs {
			skipped++
			continue
		}

		inputs, err := FromRecord(record)
		if err != nil {
			failed++
			r.logger.Warn("parse swap record", zap.Error(err), zap.String("pool", record.Pool))
			continue
		}

		result := r.engine.Update(inputs.Pool, inputs.Reference, inputs.Amount, inputs.Liquidity, inputs.Timestamp)
		switch result.Outcome {
		case tier.OutcomeUnconfigured:
			ignored++
		default:
			applied++
			r.touched[inputs.Pool] = struct{}{}
		}
		if result.TierChanged {
			tierChanges++
		}

		if record.Timestamp > maxTs {
			maxTs = record.Timestamp
		}

		sinceFlush++
		if sinceFlush >= r.cfg.BatchSize {
			if err := r.flushSnapshots(ctx); err != nil {
				return err
			}
			if err := r.saveState(ctx, maxTs); err != nil {
				return err
			}
			sinceFlush = 0
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	if err := r.flushSnapshots(ctx); err != nil {
		return err
	}
	if err := r.saveState(ctx, maxTs); err != nil {
		return err
	}

	r.logger.Info("replay complete",
		zap.Int("total", total),
		zap.Int("applied", applied),
		zap.Int("ignored", ignored),
		zap.Int("tier_changes", tierChanges),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func (r *Replayer) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if r.cfg.RecomputeFrom > 0 {
		return r.cfg.RecomputeFrom - 1, nil
	}
	if r.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := r.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

func (r *Replayer) saveState(ctx context.Context, ts uint64) error {
	if r.cfg.StateStore == nil || ts == 0 {
		return nil
	}
	return r.cfg.StateStore.Save(ctx, ts)
}

func (r *Replayer) flushSnapshots(ctx context.Context) error {
	if r.store == nil || len(r.touched) == 0 {
		return nil
	}
	snapshots := collectSnapshots(r.engine, r.touched)
	if err := r.store.UpsertTierStates(ctx, snapshots); err != nil {
		return fmt.Errorf("persist tier states: %w", err)
	}
	r.touched = make(map[model.PoolKey]struct{})
	return nil
}

// collectSnapshots reads the engine state for the given pools into
// persistable snapshot records.
func collectSnapshots(engine *tier.Engine, pools map[model.PoolKey]struct{}) []model.TierSnapshot {
	snapshots := make([]model.TierSnapshot, 0, len(pools))
	for pool := range pools {
		snapshot := model.TierSnapshot{Pool: pool.String(), EMA: "0"}
		if state, ok := engine.TierStateOf(pool); ok {
			snapshot.Tier = state.Tier
			snapshot.LastTierWriteTime = state.LastTierWriteTime
		}
		if observation, ok := engine.ObservationOf(pool); ok {
			if observation.EMA != nil {
				snapshot.EMA = observation.EMA.String()
			}
			snapshot.LastObserved = observation.LastTimestamp
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots
}
