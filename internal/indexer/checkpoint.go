package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint remembers the end of the last fully indexed time range.
type Checkpoint interface {
	Load(ctx context.Context) (time.Time, bool, error)
	Save(ctx context.Context, end time.Time) error
}

type checkpointFile struct {
	LastEndTs int64  `json:"last_end_ts"`
	UpdatedAt string `json:"updated_at"`
}

// FileCheckpoint persists the checkpoint as a small JSON file.
type FileCheckpoint struct {
	path string
}

func NewFileCheckpoint(path string) *FileCheckpoint {
	return &FileCheckpoint{path: path}
}

func (c *FileCheckpoint) Load(_ context.Context) (time.Time, bool, error) {
	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return time.Time{}, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp checkpointFile
	if err := json.Unmarshal(data, &cp); err != nil {
		return time.Time{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	return time.Unix(cp.LastEndTs, 0).UTC(), true, nil
}

func (c *FileCheckpoint) Save(_ context.Context, end time.Time) error {
	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	data, err := json.Marshal(checkpointFile{
		LastEndTs: end.Unix(),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

// StateBackend is a named timestamp store such as the Postgres indexer_state table.
type StateBackend interface {
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, ts uint64) error
}

// StateCheckpoint keeps the checkpoint in a StateBackend under name.
type StateCheckpoint struct {
	backend StateBackend
	name    string
}

func NewStateCheckpoint(backend StateBackend, name string) *StateCheckpoint {
	return &StateCheckpoint{backend: backend, name: name}
}

func (c *StateCheckpoint) Load(ctx context.Context) (time.Time, bool, error) {
	ts, ok, err := c.backend.LoadState(ctx, c.name)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return time.Unix(int64(ts), 0).UTC(), true, nil
}

func (c *StateCheckpoint) Save(ctx context.Context, end time.Time) error {
	if end.Unix() < 0 {
		return fmt.Errorf("checkpoint %s predates the unix epoch", end)
	}
	return c.backend.SaveState(ctx, c.name, uint64(end.Unix()))
}
