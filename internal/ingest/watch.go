package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"velocityFee/internal/chain"
	"velocityFee/internal/dex"
	"velocityFee/internal/model"
	"velocityFee/internal/storage/postgres"
	"velocityFee/internal/tier"
)

// WatchConfig holds runtime settings for the live ingest loop.
type WatchConfig struct {
	FromBlock         uint64
	ToBlock           uint64
	Addresses         []common.Address
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Watcher streams Swap logs from the chain and feeds them to the tier
// engine, checkpointing progress per block batch.
type Watcher struct {
	cfg        WatchConfig
	chain      *chain.Client
	decoder    *dex.SwapDecoder
	engine     *tier.Engine
	store      *postgres.Store
	logger     *zap.Logger
	seen       map[string]struct{}
	checkpoint *CheckpointStore
}

// NewWatcher builds a Watcher. store may be nil to skip persistence.
func NewWatcher(cfg WatchConfig, chainClient *chain.Client, decoder *dex.SwapDecoder, engine *tier.Engine, store *postgres.Store, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		cfg:        cfg,
		chain:      chainClient,
		decoder:    decoder,
		engine:     engine,
		store:      store,
		logger:     logger,
		seen:       make(map[string]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the ingest loop over the configured block range.
func (w *Watcher) Run(ctx context.Context) error {
	if w.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if w.decoder == nil {
		return fmt.Errorf("decoder is nil")
	}
	if w.engine == nil {
		return fmt.Errorf("engine is nil")
	}
	if w.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(w.cfg.Addresses) == 0 {
		return fmt.Errorf("at least one pool address is required")
	}

	from := w.cfg.FromBlock
	to := w.cfg.ToBlock
	if to == 0 {
		latest, err := w.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if w.checkpoint != nil {
		cp, ok, err := w.checkpoint.Load()
		if err != nil {
			return err
		}
		if ok && cp.LastProcessedBlock >= from {
			from = cp.LastProcessedBlock + 1
			w.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
		}
	}

	if from > to {
		w.logger.Info("nothing to ingest", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, w.cfg.BatchSize)
	if err != nil {
		return err
	}

	topic0 := []common.Hash{w.decoder.Topic0()}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		logs, err := w.filterLogsWithRetry(ctx, blockRange.From, blockRange.To, topic0)
		if err != nil {
			return fmt.Errorf("filter logs: %w", err)
		}

		touched := make(map[model.PoolKey]struct{})
		var swaps, tierChanges, failed int
		for _, log := range logs {
			if log.Removed || w.isDuplicate(log) {
				continue
			}

			ts, err := w.blockTimestampWithRetry(ctx, log.BlockNumber)
			if err != nil {
				return fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}

			swap, err := w.decoder.Decode(log)
			if err != nil {
				failed++
				w.logger.Warn("decode swap log", zap.Error(err), zap.String("pool", log.Address.Hex()), zap.Uint64("block", log.BlockNumber))
				continue
			}

			inputs, err := FromSwapEvent(log.Address, swap, ts)
			if err != nil {
				failed++
				w.logger.Warn("parse swap event", zap.Error(err), zap.String("pool", log.Address.Hex()))
				continue
			}

			result := w.engine.Update(inputs.Pool, inputs.Reference, inputs.Amount, inputs.Liquidity, inputs.Timestamp)
			if result.Outcome != tier.OutcomeUnconfigured {
				swaps++
				touched[inputs.Pool] = struct{}{}
			}
			if result.TierChanged {
				tierChanges++
			}
		}

		if w.store != nil && len(touched) > 0 {
			if err := w.store.UpsertTierStates(ctx, collectSnapshots(w.engine, touched)); err != nil {
				return fmt.Errorf("persist tier states: %w", err)
			}
		}

		if w.checkpoint != nil {
			if err := w.checkpoint.Save(blockRange.To); err != nil {
				return err
			}
		}

		w.logger.Info("batch complete",
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
			zap.Int("swaps", swaps),
			zap.Int("tier_changes", tierChanges),
			zap.Int("failed", failed),
		)
	}

	return nil
}

func (w *Watcher) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64, topic0 []common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = w.chain.FilterLogs(ctx, fromBlock, toBlock, w.cfg.Addresses, topic0)
		if err != nil {
			w.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (w *Watcher) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = w.chain.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			w.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

func (w *Watcher) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := w.seen[id]; ok {
		return true
	}
	w.seen[id] = struct{}{}
	return false
}
