package document

// SectionName is the logical name of an item section
type SectionName string

const (
	Triggers   SectionName = "triggers"
	Conditions SectionName = "conditions"
	Actions    SectionName = "actions"
)

// Sections lists the item sections of an automation in evaluation order
var Sections = []SectionName{Triggers, Conditions, Actions}

// Singular returns the legacy key, also used in issue locations
func (s SectionName) Singular() string {
	switch s {
	case Triggers:
		return "trigger"
	case Conditions:
		return "condition"
	case Actions:
		return "action"
	}
	return string(s)
}

// SectionKey returns the key that holds a section in raw. The plural key
// wins when present, then the legacy singular key. When neither exists the
// plural key is returned so new sections are written in the current shape.
func SectionKey(raw map[string]any, name SectionName) string {
	if v, ok := raw[string(name)]; ok && v != nil {
		return string(name)
	}
	if _, ok := raw[name.Singular()]; ok {
		return name.Singular()
	}
	return string(name)
}

// Section returns the normalized items of a section
func Section(raw map[string]any, name SectionName) []map[string]any {
	if raw == nil {
		return []map[string]any{}
	}
	return Normalize(raw[SectionKey(raw, name)])
}

// Normalize turns a section value into a sequence of item mappings.
// nil becomes empty, a single mapping becomes a singleton and non-mapping
// entries are skipped.
func Normalize(v any) []map[string]any {
	out := []map[string]any{}
	switch t := v.(type) {
	case nil:
	case map[string]any:
		out = append(out, t)
	case []map[string]any:
		out = append(out, t...)
	case []any:
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
	}
	return out
}

// Indexed pairs a normalized item with its position in the raw sequence.
// The position counts every raw entry, mappings or not, so it can address
// the item in the source file.
type Indexed struct {
	Index int
	Item  map[string]any
}

// IndexedSection is Section keeping the raw positions
func IndexedSection(raw map[string]any, name SectionName) []Indexed {
	out := []Indexed{}
	if raw == nil {
		return out
	}
	switch t := raw[SectionKey(raw, name)].(type) {
	case map[string]any:
		out = append(out, Indexed{Index: 0, Item: t})
	case []any:
		for i, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, Indexed{Index: i, Item: m})
			}
		}
	}
	return out
}
