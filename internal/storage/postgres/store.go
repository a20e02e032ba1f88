package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"velocityFee/internal/model"
)

// Store provides Postgres persistence for pool parameters, tier
// snapshots, and tier events.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ParamsRecord pairs a pool key with its fee-curve configuration.
type ParamsRecord struct {
	Pool   string
	Params model.Params
}

// UpsertPoolParams inserts or updates fee-curve configuration records.
func (s *Store) UpsertPoolParams(ctx context.Context, records []ParamsRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, record := range records {
		batch.Queue(`
			INSERT INTO pool_params (
				pool, mode, base_bps, min_bps, max_bps,
				decay_half_life_seconds, target, slope, cap_multiplier,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
			ON CONFLICT (pool)
			DO UPDATE SET
				mode = EXCLUDED.mode,
				base_bps = EXCLUDED.base_bps,
				min_bps = EXCLUDED.min_bps,
				max_bps = EXCLUDED.max_bps,
				decay_half_life_seconds = EXCLUDED.decay_half_life_seconds,
				target = EXCLUDED.target,
				slope = EXCLUDED.slope,
				cap_multiplier = EXCLUDED.cap_multiplier,
				updated_at = now()
		`,
			record.Pool,
			record.Params.Mode.String(),
			record.Params.BaseBps,
			record.Params.MinBps,
			record.Params.MaxBps,
			int64(record.Params.DecayHalfLifeSeconds),
			bigString(record.Params.Target),
			bigString(record.Params.Slope),
			int64(record.Params.CapMultiplier),
		)
	}
	return s.execBatch(ctx, batch, len(records))
}

// UpsertTierStates inserts or updates per-pool tier snapshots.
func (s *Store) UpsertTierStates(ctx context.Context, snapshots []model.TierSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snapshot := range snapshots {
		batch.Queue(`
			INSERT INTO tier_states (
				pool, tier, last_tier_write_time, ema, last_observed, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (pool)
			DO UPDATE SET
				tier = EXCLUDED.tier,
				last_tier_write_time = EXCLUDED.last_tier_write_time,
				ema = EXCLUDED.ema,
				last_observed = EXCLUDED.last_observed,
				updated_at = now()
		`,
			snapshot.Pool,
			int16(snapshot.Tier),
			int64(snapshot.LastTierWriteTime),
			snapshot.EMA,
			int64(snapshot.LastObserved),
		)
	}
	return s.execBatch(ctx, batch, len(snapshots))
}

// InsertTierEvents appends tier event records.
func (s *Store) InsertTierEvents(ctx context.Context, events []model.TierEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, event := range events {
		batch.Queue(`
			INSERT INTO tier_events (
				type, pool, old_tier, new_tier, source, event_time, emitted_at, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		`,
			event.Type,
			event.Pool,
			int16(event.OldTier),
			int16(event.NewTier),
			event.Source,
			int64(event.Timestamp),
			event.EmittedAt,
		)
	}
	return s.execBatch(ctx, batch, len(events))
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts uint64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM feehook_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return ts, true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feehook_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, ts)
	return err
}

func (s *Store) execBatch(ctx context.Context, batch *pgx.Batch, count int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < count; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
