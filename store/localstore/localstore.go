// Package localstore implements store.ContextStore on the local filesystem,
// one pretty-printed JSON file per trace id, matching the original crate's
// LocalFileStore (store/local.rs).
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/meridianai/taskforge/store"
)

// Store writes each Record as "<root>/<trace_id>.json".
type Store struct {
	root string
}

// New creates the root directory (if missing) and returns a Store rooted
// there.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("localstore: create root dir: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) path(traceID string) string {
	return filepath.Join(s.root, traceID+".json")
}

// Save writes rec to "<root>/<trace_id>.json", pretty-printed for human
// debugging, matching the original's serde_json::to_string_pretty.
func (s *Store) Save(_ context.Context, rec *store.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("localstore: marshal record: %w", err)
	}
	if err := os.WriteFile(s.path(rec.TraceID), data, 0o644); err != nil {
		return fmt.Errorf("localstore: write file: %w", err)
	}
	return nil
}

// Load reads "<root>/<trace_id>.json"; a missing file is (nil, false, nil),
// not an error.
func (s *Store) Load(_ context.Context, traceID string) (*store.Record, bool, error) {
	data, err := os.ReadFile(s.path(traceID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("localstore: read file: %w", err)
	}
	var rec store.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("localstore: unmarshal record: %w", err)
	}
	return &rec, true, nil
}
