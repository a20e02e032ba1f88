package ingest

import (
	"path/filepath"
	"testing"
)

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	store := NewCheckpointStore(path, true)

	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("expected no checkpoint yet, got ok=%v err=%v", ok, err)
	}

	if err := store.Save(12345); err != nil {
		t.Fatalf("save checkpoint: %v", err)
	}

	cp, ok, err := store.Load()
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if !ok {
		t.Fatalf("expected checkpoint to exist")
	}
	if cp.LastProcessedBlock != 12345 {
		t.Fatalf("last processed block mismatch: %d", cp.LastProcessedBlock)
	}
}

func TestCheckpointDisabled(t *testing.T) {
	store := NewCheckpointStore("", false)

	if err := store.Save(99); err != nil {
		t.Fatalf("disabled save should be a no-op: %v", err)
	}
	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("disabled load should report nothing, got ok=%v err=%v", ok, err)
	}
}
