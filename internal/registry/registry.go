package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"haca/internal/models"
)

// Provider supplies the read-only registries and live states
type Provider interface {
	Entities(ctx context.Context) ([]models.EntityEntry, error)
	Devices(ctx context.Context) ([]models.DeviceEntry, error)
	ConfigEntries(ctx context.Context) ([]models.ConfigEntry, error)
	States(ctx context.Context) ([]models.State, error)
}

// Snapshot is an indexed copy of the registries taken once per scan
type Snapshot struct {
	entities      []models.EntityEntry
	byEntityID    map[string]models.EntityEntry
	byRegistryID  map[string]models.EntityEntry
	byDevice      map[string][]models.EntityEntry
	devices       map[string]models.DeviceEntry
	configEntries map[string]models.ConfigEntry
	states        []models.State
	stateByID     map[string]models.State
}

// Fetch builds a snapshot from a provider
func Fetch(ctx context.Context, p Provider) (*Snapshot, error) {
	entities, err := p.Entities(ctx)
	if err != nil {
		return nil, fmt.Errorf("entity registry: %w", err)
	}
	devices, err := p.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("device registry: %w", err)
	}
	entries, err := p.ConfigEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("config entries: %w", err)
	}
	states, err := p.States(ctx)
	if err != nil {
		return nil, fmt.Errorf("states: %w", err)
	}
	return NewSnapshot(entities, devices, entries, states), nil
}

// NewSnapshot indexes registry records. Input order is kept for every
// per-device entity list.
func NewSnapshot(entities []models.EntityEntry, devices []models.DeviceEntry, entries []models.ConfigEntry, states []models.State) *Snapshot {
	s := &Snapshot{
		entities:      entities,
		byEntityID:    make(map[string]models.EntityEntry, len(entities)),
		byRegistryID:  make(map[string]models.EntityEntry, len(entities)),
		byDevice:      make(map[string][]models.EntityEntry),
		devices:       make(map[string]models.DeviceEntry, len(devices)),
		configEntries: make(map[string]models.ConfigEntry, len(entries)),
		states:        states,
		stateByID:     make(map[string]models.State, len(states)),
	}
	for _, e := range entities {
		s.byEntityID[e.EntityID] = e
		if e.ID != "" {
			s.byRegistryID[e.ID] = e
		}
		if e.DeviceID != "" {
			s.byDevice[e.DeviceID] = append(s.byDevice[e.DeviceID], e)
		}
	}
	for _, d := range devices {
		s.devices[d.ID] = d
	}
	for _, c := range entries {
		s.configEntries[c.EntryID] = c
	}
	for _, st := range states {
		s.stateByID[st.EntityID] = st
	}
	return s
}

// Entities returns every registry entry
func (s *Snapshot) Entities() []models.EntityEntry {
	return s.entities
}

// Entity looks up a registry entry by entity id
func (s *Snapshot) Entity(entityID string) (models.EntityEntry, bool) {
	e, ok := s.byEntityID[entityID]
	return e, ok
}

// EntityByRegistryID looks up a registry entry by its registry UUID
func (s *Snapshot) EntityByRegistryID(id string) (models.EntityEntry, bool) {
	e, ok := s.byRegistryID[id]
	return e, ok
}

// DeviceEntities returns the entities owned by a device
func (s *Snapshot) DeviceEntities(deviceID string) []models.EntityEntry {
	return s.byDevice[deviceID]
}

// Device looks up a device
func (s *Snapshot) Device(deviceID string) (models.DeviceEntry, bool) {
	d, ok := s.devices[deviceID]
	return d, ok
}

// ConfigEntry looks up a config entry
func (s *Snapshot) ConfigEntry(entryID string) (models.ConfigEntry, bool) {
	c, ok := s.configEntries[entryID]
	return c, ok
}

// States returns every live state
func (s *Snapshot) States() []models.State {
	return s.states
}

// StatesWithPrefix returns live states whose entity id starts with prefix,
// e.g. "automation."
func (s *Snapshot) StatesWithPrefix(prefix string) []models.State {
	var out []models.State
	for _, st := range s.states {
		if strings.HasPrefix(st.EntityID, prefix) {
			out = append(out, st)
		}
	}
	return out
}

// State looks up the live state of an entity
func (s *Snapshot) State(entityID string) (models.State, bool) {
	st, ok := s.stateByID[entityID]
	return st, ok
}

// Exists reports whether an entity has a state or a registry entry
func (s *Snapshot) Exists(entityID string) bool {
	if _, ok := s.stateByID[entityID]; ok {
		return true
	}
	_, ok := s.byEntityID[entityID]
	return ok
}

// KnownEntityIDs returns every entity id with a state or registry entry,
// sorted
func (s *Snapshot) KnownEntityIDs() []string {
	seen := make(map[string]bool, len(s.stateByID)+len(s.byEntityID))
	for id := range s.stateByID {
		seen[id] = true
	}
	for id := range s.byEntityID {
		seen[id] = true
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// EntityForUniqueID finds the entity a platform registered under uniqueID
func (s *Snapshot) EntityForUniqueID(platform, uniqueID string) (string, bool) {
	for _, e := range s.entities {
		if e.Platform == platform && e.UniqueID == uniqueID {
			return e.EntityID, true
		}
	}
	return "", false
}

// Registered reports whether an entity exists in the registry or states
func (s *Snapshot) Registered(entityID string) bool {
	return s.Exists(entityID)
}
