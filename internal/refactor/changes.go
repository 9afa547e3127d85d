package refactor

import (
	"fmt"
	"sort"
	"strings"

	"haca/internal/automation"
	"haca/internal/document"
	"haca/internal/resolver"
	"haca/internal/utils"
)

// Change sections besides the item sections
const (
	SectionMode        = "mode"
	SectionMax         = "max"
	SectionDescription = "description"
)

// DefaultMax is set when switching to queued or parallel without a max
const DefaultMax = 10

// ValidModes are the run modes an automation accepts
var ValidModes = []string{"single", "restart", "queued", "parallel"}

// Change is one replacement proposed by a preview
type Change struct {
	Section     string `json:"section"`
	Index       int    `json:"index"`
	From        any    `json:"from,omitempty"`
	To          any    `json:"to"`
	Description string `json:"description"`
}

var triggerStates = map[string]string{
	"turned_on":    "on",
	"turned on":    "on",
	"motion":       "on",
	"occupied":     "on",
	"opened":       "on",
	"detected":     "on",
	"connected":    "on",
	"turned_off":   "off",
	"turned off":   "off",
	"not_occupied": "off",
	"closed":       "off",
	"not_detected": "off",
	"disconnected": "off",
}

// deviceChanges converts every device reference of d that resolves to an
// entity. Items that cannot be resolved are logged and left out.
func deviceChanges(d *document.Document, res *resolver.Resolver) []Change {
	log := utils.Logger("REFACTOR")
	var changes []Change
	for _, section := range document.Sections {
		for _, it := range d.Items(section) {
			var (
				replacement map[string]any
				desc        string
				ok          bool
			)
			switch section {
			case document.Triggers:
				replacement, desc, ok = convertTrigger(it, res)
			case document.Conditions:
				replacement, desc, ok = convertCondition(it, res)
			case document.Actions:
				replacement, desc, ok = convertAction(it, res)
			}
			if !ok {
				continue
			}
			if replacement == nil {
				log.Warnf("Cannot resolve entity for %s (device_id=%s)", d.Location(section, it.Index), document.Text(it.Item, "device_id"))
				continue
			}
			changes = append(changes, Change{
				Section:     section.Singular(),
				Index:       it.Index,
				From:        it.Item,
				To:          replacement,
				Description: desc,
			})
		}
	}
	return changes
}

// without copies item leaving out keys
func without(item map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// convertTrigger reports ok when the item carries a device reference; a
// nil replacement means it could not be resolved
func convertTrigger(it document.Indexed, res *resolver.Resolver) (map[string]any, string, bool) {
	if !document.Has(it.Item, "device_id") {
		return nil, "", false
	}
	dev := document.Classify(document.Triggers, it.Item)
	key, disc := document.Discriminator(document.Triggers, it.Item)
	if key == "" {
		key = "platform"
	}

	if _, isDevice := dev.(document.Device); !isDevice {
		// A state style trigger that also names the device: the entity
		// reference is already there.
		if !document.IsEntityID(document.String(it.Item, "entity_id")) {
			return nil, "", true
		}
		return without(it.Item, "device_id"),
			fmt.Sprintf("Trigger %d: drop device_id from %s trigger", it.Index, disc), true
	}

	d := dev.(document.Device)
	entity, ok := res.Resolve(d.DeviceID, d.EntityRef, d.Domain)
	if !ok {
		return nil, "", true
	}
	out := map[string]any{key: "state", "entity_id": entity}
	if to, ok := triggerStates[d.Type]; ok {
		out["to"] = to
	}
	return out, fmt.Sprintf("Trigger %d: %s.%s -> %s: state, entity_id: %s", it.Index, d.Domain, d.Type, key, entity), true
}

func convertCondition(it document.Indexed, res *resolver.Resolver) (map[string]any, string, bool) {
	if !document.Has(it.Item, "device_id") {
		return nil, "", false
	}
	deviceID := document.Text(it.Item, "device_id")
	domain := document.String(it.Item, "domain")
	typ := document.String(it.Item, "type")

	entity, ok := res.Resolve(deviceID, document.String(it.Item, "entity_id"), domain)
	if !ok {
		return nil, "", true
	}

	var out map[string]any
	if domain == "sensor" && strings.HasPrefix(typ, "is_") {
		out = map[string]any{"condition": "numeric_state", "entity_id": entity}
		for _, k := range []string{"below", "above"} {
			if v, ok := it.Item[k]; ok {
				out[k] = v
			}
		}
	} else {
		out = map[string]any{"condition": "state", "entity_id": entity}
		switch {
		case typ == "is_on":
			out["state"] = "on"
		case typ == "is_off":
			out["state"] = "off"
		case strings.HasPrefix(typ, "is_"):
			out["state"] = strings.TrimPrefix(typ, "is_")
		}
	}
	return out, fmt.Sprintf("Condition %d: %s.%s -> %s, entity_id: %s", it.Index, domain, typ, out["condition"], entity), true
}

func convertAction(it document.Indexed, res *resolver.Resolver) (map[string]any, string, bool) {
	target := document.Map(it.Item, "target")
	_, targetDevices := target["device_id"]
	if !document.Has(it.Item, "device_id") && !targetDevices {
		return nil, "", false
	}

	svc, isService := document.Classify(document.Actions, it.Item).(document.Service)
	if !isService {
		deviceID := document.Text(it.Item, "device_id")
		domain := document.String(it.Item, "domain")
		if domain == "" {
			domain = "homeassistant"
		}
		typ := document.String(it.Item, "type")
		if typ == "" {
			typ = "toggle"
		}
		entity, ok := res.Resolve(deviceID, document.String(it.Item, "entity_id"), domain)
		if !ok {
			return nil, "", true
		}
		service := domain + "." + typ
		out := map[string]any{"action": service, "target": map[string]any{"entity_id": entity}}
		if data, ok := it.Item["data"]; ok {
			out["data"] = data
		}
		return out, fmt.Sprintf("Action %d: %s -> entity_id: %s", it.Index, service, entity), true
	}

	// A service call addressing devices: move them into target.entity_id
	hint, _, _ := strings.Cut(svc.Service, ".")
	var devices []string
	if deviceID := document.Text(it.Item, "device_id"); deviceID != "" {
		devices = append(devices, deviceID)
	}
	devices = append(devices, document.StringList(target["device_id"])...)

	var entities, unresolved []string
	for _, deviceID := range utils.Unique(devices) {
		if entity, ok := res.Resolve(deviceID, "", hint); ok {
			entities = append(entities, entity)
		} else {
			unresolved = append(unresolved, deviceID)
		}
	}
	if len(entities) == 0 {
		return nil, "", true
	}

	newTarget := without(target, "device_id")
	entities = utils.Unique(append(document.StringList(target["entity_id"]), entities...))
	sort.Strings(entities)
	if len(entities) == 1 {
		newTarget["entity_id"] = entities[0]
	} else {
		list := make([]any, len(entities))
		for i, e := range entities {
			list[i] = e
		}
		newTarget["entity_id"] = list
	}
	if len(unresolved) > 0 {
		list := make([]any, len(unresolved))
		for i, d := range unresolved {
			list[i] = d
		}
		newTarget["device_id"] = list
	}

	out := without(it.Item, "device_id")
	out["target"] = newTarget
	return out, fmt.Sprintf("Action %d: %s -> entity_id: %s", it.Index, svc.Service, strings.Join(entities, ", ")), true
}

// modeChanges switches the run mode, adding max for queued and parallel
func modeChanges(d *document.Document, mode string) []Change {
	current := document.String(d.Raw, "mode")
	if current == "" {
		current = "single"
	}
	changes := []Change{{
		Section:     SectionMode,
		From:        current,
		To:          mode,
		Description: fmt.Sprintf("Change mode from '%s' to '%s'", current, mode),
	}}
	if (mode == "queued" || mode == "parallel") && !document.Has(d.Raw, "max") {
		changes = append(changes, Change{
			Section:     SectionMax,
			To:          DefaultMax,
			Description: fmt.Sprintf("Add max parameter (default: %d)", DefaultMax),
		})
	}
	return changes
}

// templateChanges rewrites simple is_state template conditions as state
// conditions
func templateChanges(d *document.Document) []Change {
	var changes []Change
	for _, it := range d.Items(document.Conditions) {
		tpl, ok := document.Classify(document.Conditions, it.Item).(document.Template)
		if !ok || !automation.IsSimpleStateTemplate(tpl.Expr) {
			continue
		}
		entity, state, ok := automation.ParseSimpleState(tpl.Expr)
		if !ok {
			continue
		}
		changes = append(changes, Change{
			Section:     document.Conditions.Singular(),
			Index:       it.Index,
			From:        it.Item,
			To:          map[string]any{"condition": "state", "entity_id": entity, "state": state},
			Description: fmt.Sprintf("Condition %d: Template -> state condition (%s is %s)", it.Index, entity, state),
		})
	}
	return changes
}

func descriptionChanges(d *document.Document, description string) []Change {
	return []Change{{
		Section:     SectionDescription,
		To:          description,
		Description: fmt.Sprintf("Set description of %s", d.Name()),
	}}
}
