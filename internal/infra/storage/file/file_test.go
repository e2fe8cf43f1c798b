package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "watermark.json")

	s, err := NewStore(path, "0xabc")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if _, ok, err := s.Load(ctx); ok || err != nil {
		t.Fatalf("Load on missing file = (%v, %v)", ok, err)
	}

	for _, block := range []uint64{100, 250} {
		if err := s.Save(ctx, block); err != nil {
			t.Fatalf("Save(%d): %v", block, err)
		}
	}

	// A fresh store sees what the previous one saved.
	s2, _ := NewStore(path, "0xabc")
	got, ok, err := s2.Load(ctx)
	if err != nil || !ok || got != 250 {
		t.Errorf("Load = (%d, %v, %v), want (250, true, nil)", got, ok, err)
	}

	if err := s2.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("state file still present after Clear")
	}
	if err := s2.Clear(ctx); err != nil {
		t.Errorf("Clear on missing file: %v", err)
	}
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	if _, err := NewStore("", "0xabc"); err == nil {
		t.Error("expected error for empty path")
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	_ = os.WriteFile(corrupt, []byte("{not json"), 0o644)
	s, _ := NewStore(corrupt, "0xabc")
	if _, _, err := s.Load(ctx); err == nil {
		t.Error("expected error for corrupt file")
	}

	other := filepath.Join(dir, "other.json")
	s1, _ := NewStore(other, "0xabc")
	_ = s1.Save(ctx, 5)
	s2, _ := NewStore(other, "0xdef")
	if _, _, err := s2.Load(ctx); err == nil {
		t.Error("expected error for state of another contract")
	}
}
