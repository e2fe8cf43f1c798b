// Package file persists the watermark as a small JSON document on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type document struct {
	Contract  string    `json:"contract"`
	Watermark uint64    `json:"watermark"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store keeps the watermark in a JSON file, replaced atomically on each save.
type Store struct {
	mu       sync.Mutex
	path     string
	contract string
}

// NewStore creates a file store at path, creating the parent directory.
func NewStore(path, contract string) (*Store, error) {
	if path == "" {
		return nil, errors.New("file store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &Store{path: path, contract: contract}, nil
}

func (s *Store) Load(ctx context.Context) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read state file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, false, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	if doc.Contract != "" && s.contract != "" && doc.Contract != s.contract {
		return 0, false, fmt.Errorf("state file %s belongs to contract %s", s.path, doc.Contract)
	}
	return doc.Watermark, true, nil
}

func (s *Store) Save(ctx context.Context, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(document{
		Contract:  s.contract,
		Watermark: block,
		UpdatedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".watermark-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }
