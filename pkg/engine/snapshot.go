package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/spotforge/matchengine/pkg/ledger"
	"github.com/spotforge/matchengine/pkg/orderbook"
)

// EngineSnapshot is the full on-disk state: every market's book plus every
// user's balances. It is written atomically (temp file + rename) on a fixed
// interval by the caller's snapshot ticker, never from inside ApplyCommand.
type EngineSnapshot struct {
	Books    []orderbook.Snapshot               `json:"books"`
	Balances map[string]map[string]ledger.Balance `json:"balances"`
}

// Snapshot captures the engine's current state without pausing command
// processing for longer than the copy itself takes — each component locks
// only for the duration of its own copy.
func (e *Engine) Snapshot() EngineSnapshot {
	return EngineSnapshot{
		Books:    e.registry.Snapshots(),
		Balances: e.ledger.Snapshot(),
	}
}

// Restore rebuilds an Engine from a previously captured snapshot.
func Restore(snap EngineSnapshot, emitter Emitter, log *zap.Logger) *Engine {
	registry := orderbook.NewRegistry()
	for _, bookSnap := range snap.Books {
		registry.Add(orderbook.Restore(bookSnap))
	}
	l := ledger.Restore(snap.Balances)
	return New(registry, l, emitter, log)
}

// WriteSnapshot serializes snap as JSON and writes it to path atomically:
// it writes to a temp file in the same directory first, then renames over
// the destination, so a crash mid-write never leaves a truncated or
// partially-written snapshot on disk.
func WriteSnapshot(path string, snap EngineSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("engine: marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("engine: create temp snapshot file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("engine: write temp snapshot file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("engine: sync temp snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("engine: close temp snapshot file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("engine: rename snapshot into place: %w", err)
	}
	return nil
}

// ReadSnapshot loads a previously written snapshot file. A missing file is
// reported as os.IsNotExist(err) so callers can fall back to a cold start.
func ReadSnapshot(path string) (EngineSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineSnapshot{}, err
	}
	var snap EngineSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return EngineSnapshot{}, fmt.Errorf("engine: unmarshal snapshot: %w", err)
	}
	return snap, nil
}
