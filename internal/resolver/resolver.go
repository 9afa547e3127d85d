package resolver

import (
	"strings"

	"haca/internal/models"
	"haca/internal/utils"
)

// Lookup is the registry view the resolver needs
type Lookup interface {
	EntityByRegistryID(id string) (models.EntityEntry, bool)
	DeviceEntities(deviceID string) []models.EntityEntry
}

// Resolver maps device references onto concrete entity ids
type Resolver struct {
	reg Lookup
}

// New creates a resolver over a registry snapshot
func New(reg Lookup) *Resolver {
	return &Resolver{reg: reg}
}

// Resolve returns the entity a device reference most likely addresses.
// ref is the entity_id carried by the item (a concrete id or a registry
// UUID), domainHint the item's domain. The first rule that matches wins:
// a concrete ref, a registry UUID hit, the device's first entity in the
// hinted domain, the device's first entity.
func (r *Resolver) Resolve(deviceID, ref, domainHint string) (string, bool) {
	if ref != "" && strings.Contains(ref, ".") {
		return ref, true
	}
	if ref != "" {
		if e, ok := r.reg.EntityByRegistryID(ref); ok && e.EntityID != "" {
			return e.EntityID, true
		}
	}

	entities := r.reg.DeviceEntities(deviceID)
	if domainHint != "" {
		for _, e := range entities {
			if strings.HasPrefix(e.EntityID, domainHint+".") {
				return e.EntityID, true
			}
		}
	}
	if len(entities) > 0 {
		return entities[0].EntityID, true
	}

	utils.Logger("RESOLVER").Debugf("No entity found for device %s (ref %q, domain %q)", deviceID, ref, domainHint)
	return "", false
}
