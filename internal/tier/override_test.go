package tier

import (
	"errors"
	"testing"

	"velocityFee/internal/model"
)

func TestSetTierCooldown(t *testing.T) {
	engine, _ := newTestEngine(t)

	if err := engine.SetTier(testAuthority, testPool, 5, 0); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := engine.SetTier(testAuthority, testPool, 6, 30); !errors.Is(err, ErrTooFrequent) {
		t.Fatalf("expected ErrTooFrequent at t=30, got %v", err)
	}
	if got := engine.GetTier(testPool); got != 5 {
		t.Fatalf("rejected write must not change the tier, got %d", got)
	}
	if err := engine.SetTier(testAuthority, testPool, 6, 61); err != nil {
		t.Fatalf("write after cooldown: %v", err)
	}
	if got := engine.GetTier(testPool); got != 6 {
		t.Fatalf("expected tier 6, got %d", got)
	}
}

func TestSetTierUnauthorized(t *testing.T) {
	engine, _ := newTestEngine(t)

	if err := engine.SetTier(testAdmin, testPool, 5, 100); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("admin capability must not grant overrides, got %v", err)
	}
	if err := engine.SetTier("stranger", testPool, 5, 100); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSetTierRange(t *testing.T) {
	engine, _ := newTestEngine(t)

	if err := engine.SetTier(testAuthority, testPool, MaxTier+1, 100); !errors.Is(err, ErrInvalidTier) {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
	if err := engine.SetTier(testAuthority, testPool, MaxTier, 100); err != nil {
		t.Fatalf("max tier must be accepted: %v", err)
	}
}

func TestSetTierBatchSkipsCoolingKeys(t *testing.T) {
	engine, _ := newTestEngine(t)
	cooled := model.PoolKey("0xcccccccccccccccccccccccccccccccccccccccc")
	cooling := model.PoolKey("0xdddddddddddddddddddddddddddddddddddddddd")

	if err := engine.SetTier(testAuthority, cooling, 3, 95); err != nil {
		t.Fatalf("seed cooling pool: %v", err)
	}

	applied, err := engine.SetTierBatch(testAuthority,
		[]model.PoolKey{cooled, cooling},
		[]uint8{7, 8},
		100,
	)
	if err != nil {
		t.Fatalf("batch must not fail on a cooling key: %v", err)
	}
	if len(applied) != 1 || applied[0] != cooled {
		t.Fatalf("expected only the cooled key applied, got %v", applied)
	}
	if got := engine.GetTier(cooled); got != 7 {
		t.Fatalf("expected tier 7, got %d", got)
	}
	if got := engine.GetTier(cooling); got != 3 {
		t.Fatalf("cooling pool's tier must be unchanged, got %d", got)
	}
}

func TestSetTierBatchValidation(t *testing.T) {
	engine, _ := newTestEngine(t)
	keys := []model.PoolKey{testPool, "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"}

	if _, err := engine.SetTierBatch(testAuthority, keys, []uint8{1}, 100); err == nil {
		t.Fatalf("expected error for length mismatch")
	}
	if _, err := engine.SetTierBatch(testAuthority, keys, []uint8{1, MaxTier + 1}, 100); !errors.Is(err, ErrInvalidTier) {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
	if got := engine.GetTier(testPool); got != 0 {
		t.Fatalf("failed batch must not apply any item, got tier %d", got)
	}
	if _, err := engine.SetTierBatch(testAdmin, keys, []uint8{1, 2}, 100); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestChangeAuthority(t *testing.T) {
	engine, _ := newTestEngine(t)
	next := Capability("rotated-token")

	if err := engine.ChangeAuthority(testAuthority, next); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("authority must not rotate itself, got %v", err)
	}
	if err := engine.ChangeAuthority(testAdmin, next); err != nil {
		t.Fatalf("change authority: %v", err)
	}
	if err := engine.SetTier(testAuthority, testPool, 5, 100); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("old authority must be revoked, got %v", err)
	}
	if err := engine.SetTier(next, testPool, 5, 100); err != nil {
		t.Fatalf("new authority rejected: %v", err)
	}
}

func TestResetState(t *testing.T) {
	engine, _ := newTestEngine(t)
	configurePriceMode(t, engine)

	engine.Update(testPool, scaled(1), nil, nil, 1000)
	engine.Update(testPool, scaled(5), nil, nil, 1400)
	if engine.GetTier(testPool) == 0 {
		t.Fatalf("expected a non-zero tier before reset")
	}

	if err := engine.ResetState(testAuthority, testPool, 2000); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("reset requires the admin capability, got %v", err)
	}
	if err := engine.ResetState(testAdmin, testPool, 2000); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if got := engine.GetTier(testPool); got != 0 {
		t.Fatalf("expected tier 0 after reset, got %d", got)
	}
	if _, ok := engine.ObservationOf(testPool); ok {
		t.Fatalf("reset must clear the observation")
	}

	// The cooldown window restarts at the reset timestamp, not at any
	// earlier write.
	if err := engine.SetTier(testAuthority, testPool, 4, 2030); !errors.Is(err, ErrTooFrequent) {
		t.Fatalf("expected ErrTooFrequent inside the reset window, got %v", err)
	}
	if err := engine.SetTier(testAuthority, testPool, 4, 2061); err != nil {
		t.Fatalf("write after reset cooldown: %v", err)
	}
}

func TestOverrideEvents(t *testing.T) {
	engine, sink := newTestEngine(t)

	if err := engine.SetTier(testAuthority, testPool, 9, 500); err != nil {
		t.Fatalf("set tier: %v", err)
	}

	var change *model.TierEvent
	for i := range sink.events {
		if sink.events[i].Type == model.EventTierChange {
			change = &sink.events[i]
		}
	}
	if change == nil {
		t.Fatalf("expected a tier change event")
	}
	if change.Source != model.SourceOverride || change.NewTier != 9 || change.OldTier != 0 || change.Timestamp != 500 {
		t.Fatalf("unexpected event: %+v", change)
	}
}
