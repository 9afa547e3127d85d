package document

import "strings"

// Variant is the classified shape of a trigger, condition or action item.
// The set of implementations is closed: Device, State, Template, Zone,
// Service and Unknown.
type Variant interface {
	variant()
}

// Device references hardware through the device registry
type Device struct {
	DeviceID string
	Domain   string
	Type     string
	// EntityRef is the entity_id carried by device items. Modern configs
	// store the registry UUID here, older ones a plain entity id.
	EntityRef string
}

// State covers state and numeric_state items
type State struct {
	Numeric   bool
	EntityIDs []string
	To        any
	Below     any
	Above     any
}

// Template holds a template expression
type Template struct {
	Expr string
}

// Zone is a zone trigger or condition
type Zone struct {
	EntityIDs []string
	Zone      string
}

// Service is a service call action
type Service struct {
	Service string
	Target  map[string]any
	Data    map[string]any
}

// Unknown is any item the catalog does not model
type Unknown struct {
	Discriminator string
}

func (Device) variant()   {}
func (State) variant()    {}
func (Template) variant() {}
func (Zone) variant()     {}
func (Service) variant()  {}
func (Unknown) variant()  {}

// Discriminator returns the key and value naming an item's variant
func Discriminator(section SectionName, item map[string]any) (string, string) {
	var keys []string
	switch section {
	case Triggers:
		keys = []string{"platform", "trigger"}
	case Conditions:
		keys = []string{"condition"}
	case Actions:
		keys = []string{"action", "service"}
	}
	for _, k := range keys {
		if s, ok := item[k].(string); ok && s != "" {
			return k, s
		}
	}
	return "", ""
}

// Classify maps a raw item onto its variant
func Classify(section SectionName, item map[string]any) Variant {
	_, disc := Discriminator(section, item)

	if section == Actions {
		if disc != "" {
			return Service{
				Service: disc,
				Target:  Map(item, "target"),
				Data:    Map(item, "data"),
			}
		}
		if Has(item, "device_id") && Has(item, "domain") {
			return deviceOf(item)
		}
		return Unknown{}
	}

	switch disc {
	case "device":
		return deviceOf(item)
	case "state", "numeric_state":
		return State{
			Numeric:   disc == "numeric_state",
			EntityIDs: StringList(item["entity_id"]),
			To:        stateTarget(section, item),
			Below:     item["below"],
			Above:     item["above"],
		}
	case "template":
		return Template{Expr: String(item, "value_template")}
	case "zone":
		return Zone{
			EntityIDs: StringList(item["entity_id"]),
			Zone:      String(item, "zone"),
		}
	}
	return Unknown{Discriminator: disc}
}

func deviceOf(item map[string]any) Device {
	return Device{
		DeviceID:  Text(item, "device_id"),
		Domain:    String(item, "domain"),
		Type:      String(item, "type"),
		EntityRef: String(item, "entity_id"),
	}
}

func stateTarget(section SectionName, item map[string]any) any {
	if section == Conditions {
		return item["state"]
	}
	return item["to"]
}

// EntityRefs returns every entity id held by an item in entity_id,
// data.entity_id or target.entity_id
func EntityRefs(item map[string]any) []string {
	var out []string
	for _, path := range [][]string{{"entity_id"}, {"data", "entity_id"}, {"target", "entity_id"}} {
		v, ok := Value(item, path...)
		if !ok {
			continue
		}
		for _, id := range StringList(v) {
			if strings.Contains(id, ".") {
				out = append(out, id)
			}
		}
	}
	return out
}
