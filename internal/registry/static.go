package registry

import (
	"context"

	"haca/internal/models"
)

// Static is an in-memory provider
type Static struct {
	EntityList      []models.EntityEntry
	DeviceList      []models.DeviceEntry
	ConfigEntryList []models.ConfigEntry
	StateList       []models.State
}

func (s *Static) Entities(context.Context) ([]models.EntityEntry, error) {
	return s.EntityList, nil
}

func (s *Static) Devices(context.Context) ([]models.DeviceEntry, error) {
	return s.DeviceList, nil
}

func (s *Static) ConfigEntries(context.Context) ([]models.ConfigEntry, error) {
	return s.ConfigEntryList, nil
}

func (s *Static) States(context.Context) ([]models.State, error) {
	return s.StateList, nil
}

// Snapshot indexes the static records
func (s *Static) Snapshot() *Snapshot {
	return NewSnapshot(s.EntityList, s.DeviceList, s.ConfigEntryList, s.StateList)
}
