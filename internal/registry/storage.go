package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"haca/internal/models"
)

// Storage reads the registries Home Assistant persists under .storage.
// It serves offline scans of a copied configuration directory; states come
// from the restore cache and are as fresh as the last shutdown.
type Storage struct {
	dir string
}

// NewStorage creates a provider for <configDir>/.storage
func NewStorage(configDir string) *Storage {
	return &Storage{dir: filepath.Join(configDir, ".storage")}
}

type storageFile[T any] struct {
	Version int `json:"version"`
	Data    T   `json:"data"`
}

func readStorage[T any](dir, name string, out *T) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	var f storageFile[T]
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*out = f.Data
	return nil
}

func (s *Storage) Entities(ctx context.Context) ([]models.EntityEntry, error) {
	var data struct {
		Entities []models.EntityEntry `json:"entities"`
	}
	if err := readStorage(s.dir, "core.entity_registry", &data); err != nil {
		return nil, err
	}
	return data.Entities, nil
}

func (s *Storage) Devices(ctx context.Context) ([]models.DeviceEntry, error) {
	var data struct {
		Devices []models.DeviceEntry `json:"devices"`
	}
	if err := readStorage(s.dir, "core.device_registry", &data); err != nil {
		return nil, err
	}
	return data.Devices, nil
}

func (s *Storage) ConfigEntries(ctx context.Context) ([]models.ConfigEntry, error) {
	var data struct {
		Entries []models.ConfigEntry `json:"entries"`
	}
	if err := readStorage(s.dir, "core.config_entries", &data); err != nil {
		return nil, err
	}
	return data.Entries, nil
}

func (s *Storage) States(ctx context.Context) ([]models.State, error) {
	var data []struct {
		State models.State `json:"state"`
	}
	if err := readStorage(s.dir, "core.restore_state", &data); err != nil {
		return nil, err
	}
	states := make([]models.State, 0, len(data))
	for _, d := range data {
		if d.State.EntityID != "" {
			states = append(states, d.State)
		}
	}
	return states, nil
}
