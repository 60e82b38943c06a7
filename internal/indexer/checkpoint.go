package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Cursor is the persisted upstream page offset of one contract.
type Cursor struct {
	Offset    int    `json:"offset"`
	UpdatedAt string `json:"updated_at"`
}

// CursorStore persists per-contract page offsets to a JSON file so offset
// pagination can resume after a restart.
type CursorStore struct {
	path    string
	enabled bool
	mu      sync.Mutex
}

func NewCursorStore(path string, enabled bool) *CursorStore {
	return &CursorStore{path: path, enabled: enabled && path != ""}
}

// Load returns the saved offset for contractID.
func (c *CursorStore) Load(contractID string) (int, bool, error) {
	if c == nil || !c.enabled {
		return 0, false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cursors, err := c.readAll()
	if err != nil {
		return 0, false, err
	}
	cur, ok := cursors[contractID]
	if !ok {
		return 0, false, nil
	}
	return cur.Offset, true, nil
}

// Save records offset for contractID, replacing the file atomically.
func (c *CursorStore) Save(contractID string, offset int) error {
	if c == nil || !c.enabled {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cursors, err := c.readAll()
	if err != nil {
		return err
	}
	cursors[contractID] = Cursor{
		Offset:    offset,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cursor dir: %w", err)
		}
	}

	data, err := json.Marshal(cursors)
	if err != nil {
		return fmt.Errorf("marshal cursors: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write cursor tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename cursor: %w", err)
	}
	return nil
}

func (c *CursorStore) readAll() (map[string]Cursor, error) {
	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]Cursor), nil
		}
		return nil, fmt.Errorf("stat cursor file: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("cursor path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("read cursor file: %w", err)
	}
	cursors := make(map[string]Cursor)
	if len(data) == 0 {
		return cursors, nil
	}
	if err := json.Unmarshal(data, &cursors); err != nil {
		return nil, fmt.Errorf("parse cursor file: %w", err)
	}
	return cursors, nil
}
