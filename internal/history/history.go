// Package history keeps scan summaries in .haca_history.json under the
// configuration root.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"haca/internal/models"
	"haca/internal/utils"
)

// FileName of the history file
const FileName = ".haca_history.json"

// DefaultLimit is the number of entries kept
const DefaultLimit = 100

// File is a JSON history file. Entries are stored oldest first.
type File struct {
	path  string
	limit int
	mu    sync.Mutex
}

// NewFile creates a history store in configDir
func NewFile(configDir string, limit int) *File {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &File{path: filepath.Join(configDir, FileName), limit: limit}
}

// Path of the history file
func (f *File) Path() string {
	return f.path
}

func (f *File) read() ([]models.ScanSummary, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []models.ScanSummary
	if err := json.Unmarshal(data, &entries); err != nil {
		// A corrupt file is replaced on the next append
		utils.Logger("HISTORY").Warnf("Ignoring unreadable %s: %v", f.path, err)
		return nil, nil
	}
	return entries, nil
}

// Append adds a summary and keeps the newest limit entries
func (f *File) Append(_ context.Context, s models.ScanSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	entries = append(entries, s)
	if len(entries) > f.limit {
		entries = entries[len(entries)-f.limit:]
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(f.path, data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// Recent returns up to limit summaries, newest first
func (f *File) Recent(_ context.Context, limit int) ([]models.ScanSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.read()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	out := make([]models.ScanSummary, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}
