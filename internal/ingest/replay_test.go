package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"velocityFee/internal/model"
	"velocityFee/internal/tier"
)

const replayTestPool = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

func writeSwapRecords(t *testing.T, path string, records []model.SwapRecord) {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create input: %v", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			t.Fatalf("encode record: %v", err)
		}
	}
}

func newReplayEngine(t *testing.T) *tier.Engine {
	t.Helper()
	engine := tier.NewEngine(tier.Config{AdminCap: "admin-token", AuthorityCap: "authority-token"}, nil)
	if err := engine.SetDefaultParameters("admin-token", replayTestPool, model.PriceVelocity); err != nil {
		t.Fatalf("set parameters: %v", err)
	}
	return engine
}

func TestReplayRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "swaps.jsonl")
	writeSwapRecords(t, input, []model.SwapRecord{
		{Pool: replayTestPool, Timestamp: 1000, SqrtPriceX96: "1000000", Amount0: "100", Liquidity: "5000"},
		{Pool: replayTestPool, Timestamp: 1010, SqrtPriceX96: "1100000", Amount0: "-200", Liquidity: "5000"},
		{Pool: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", Timestamp: 1010, SqrtPriceX96: "7", Amount0: "1", Liquidity: "1"},
	})

	engine := newReplayEngine(t)
	state := &FileStateStore{Path: filepath.Join(dir, "state.json")}
	replayer := NewReplayer(ReplayConfig{BatchSize: 2, StateStore: state}, engine, nil, nil)

	if err := replayer.Run(context.Background(), input); err != nil {
		t.Fatalf("replay: %v", err)
	}

	obs, ok := engine.ObservationOf(replayTestPool)
	if !ok {
		t.Fatalf("expected observation for pool")
	}
	if obs.LastTimestamp != 1010 {
		t.Errorf("last timestamp mismatch: %d", obs.LastTimestamp)
	}
	// dt=10s, half-life 180s, 10% reference move on a zero EMA.
	if obs.EMA.String() != "5555555555555555" {
		t.Errorf("ema mismatch: %s", obs.EMA)
	}

	if _, ok := engine.ObservationOf("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"); ok {
		t.Errorf("unconfigured pool must not accumulate state")
	}

	last, ok, err := state.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("load state: ok=%v err=%v", ok, err)
	}
	if last != 1010 {
		t.Errorf("persisted timestamp mismatch: %d", last)
	}
}

func TestReplayResumeSkipsProcessed(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "swaps.jsonl")
	writeSwapRecords(t, input, []model.SwapRecord{
		{Pool: replayTestPool, Timestamp: 1000, SqrtPriceX96: "1000000", Amount0: "100", Liquidity: "5000"},
		{Pool: replayTestPool, Timestamp: 1010, SqrtPriceX96: "1100000", Amount0: "100", Liquidity: "5000"},
	})

	state := &FileStateStore{Path: filepath.Join(dir, "state.json")}
	if err := state.Save(context.Background(), 1010); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	engine := newReplayEngine(t)
	replayer := NewReplayer(ReplayConfig{BatchSize: 10, StateStore: state}, engine, nil, nil)
	if err := replayer.Run(context.Background(), input); err != nil {
		t.Fatalf("replay: %v", err)
	}

	if _, ok := engine.ObservationOf(replayTestPool); ok {
		t.Fatalf("resumed replay must not re-apply processed records")
	}
}

func TestReplayRecomputeFromOverridesState(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "swaps.jsonl")
	writeSwapRecords(t, input, []model.SwapRecord{
		{Pool: replayTestPool, Timestamp: 1000, SqrtPriceX96: "1000000", Amount0: "100", Liquidity: "5000"},
		{Pool: replayTestPool, Timestamp: 1010, SqrtPriceX96: "1100000", Amount0: "100", Liquidity: "5000"},
	})

	state := &FileStateStore{Path: filepath.Join(dir, "state.json")}
	if err := state.Save(context.Background(), 2000); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	engine := newReplayEngine(t)
	replayer := NewReplayer(ReplayConfig{BatchSize: 10, RecomputeFrom: 1000, StateStore: state}, engine, nil, nil)
	if err := replayer.Run(context.Background(), input); err != nil {
		t.Fatalf("replay: %v", err)
	}

	obs, ok := engine.ObservationOf(replayTestPool)
	if !ok || obs.LastTimestamp != 1010 {
		t.Fatalf("recompute should reprocess records, got ok=%v obs=%+v", ok, obs)
	}
}

func TestReplayToleratesMalformedLines(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "swaps.jsonl")
	content := `not json
{"pool":"` + replayTestPool + `","timestamp":1000,"sqrt_price_x96":"1000000","amount0":"100","liquidity":"5000"}
`
	if err := os.WriteFile(input, []byte(content), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	engine := newReplayEngine(t)
	replayer := NewReplayer(ReplayConfig{BatchSize: 10}, engine, nil, nil)
	if err := replayer.Run(context.Background(), input); err != nil {
		t.Fatalf("replay: %v", err)
	}

	if _, ok := engine.ObservationOf(replayTestPool); !ok {
		t.Fatalf("valid record after malformed line should still apply")
	}
}

func TestReplayMissingInput(t *testing.T) {
	engine := newReplayEngine(t)
	replayer := NewReplayer(ReplayConfig{BatchSize: 10}, engine, nil, nil)
	if err := replayer.Run(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl")); err == nil {
		t.Fatalf("expected error for missing input file")
	}
}
