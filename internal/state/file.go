// Package state persists the scan checkpoint through a remote primary with
// a local-file fallback.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/civicwire/videoscan/internal/scanner"
)

// FileStore keeps the checkpoint in a local JSON file. On platforms where
// the filesystem does not survive redeploys it only bridges restarts of the
// same container, which is why it is the fallback and not the primary.
type FileStore struct {
	path string
}

// NewFileStore builds a FileStore at the given path.
func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	return &FileStore{path: path}, nil
}

// Load reads the checkpoint. A missing file means no checkpoint.
func (s *FileStore) Load(_ context.Context) (scanner.ScanState, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return scanner.ScanState{}, false, nil
		}
		return scanner.ScanState{}, false, fmt.Errorf("read state file: %w", err)
	}
	var state scanner.ScanState
	if err := json.Unmarshal(data, &state); err != nil {
		return scanner.ScanState{}, false, fmt.Errorf("decode state file: %w", err)
	}
	if state.IsZero() {
		return scanner.ScanState{}, false, nil
	}
	return state, true, nil
}

// Save writes the checkpoint, creating parent directories as needed.
func (s *FileStore) Save(_ context.Context, state scanner.ScanState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create state directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// Delete removes the file. A missing file is not an error.
func (s *FileStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state file: %w", err)
	}
	return nil
}
