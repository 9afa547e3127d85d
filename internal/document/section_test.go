package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSectionShapes(t *testing.T) {
	item := map[string]any{"platform": "state", "entity_id": "light.x"}

	tests := []struct {
		name string
		raw  map[string]any
		want []map[string]any
	}{
		{"absent", map[string]any{"alias": "a"}, []map[string]any{}},
		{"plural list", map[string]any{"triggers": []any{item}}, []map[string]any{item}},
		{"singular list", map[string]any{"trigger": []any{item}}, []map[string]any{item}},
		{"single mapping", map[string]any{"trigger": item}, []map[string]any{item}},
		{"non mapping skipped", map[string]any{"triggers": []any{"x", item, 3}}, []map[string]any{item}},
		{"plural preferred", map[string]any{"triggers": []any{item}, "trigger": []any{map[string]any{"platform": "sun"}}}, []map[string]any{item}},
		{"null plural falls back", map[string]any{"triggers": nil, "trigger": item}, []map[string]any{item}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Section(tt.raw, Triggers))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []any{
		nil,
		map[string]any{"condition": "state"},
		[]any{map[string]any{"service": "light.turn_on"}, "junk", map[string]any{"delay": 5}},
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		assert.Equal(t, once, twice)
	}
}

func TestSectionKey(t *testing.T) {
	assert.Equal(t, "triggers", SectionKey(map[string]any{}, Triggers))
	assert.Equal(t, "condition", SectionKey(map[string]any{"condition": []any{}}, Conditions))
	assert.Equal(t, "actions", SectionKey(map[string]any{"actions": []any{}, "action": []any{}}, Actions))
}

func TestIndexedSectionKeepsRawPositions(t *testing.T) {
	raw := map[string]any{"actions": []any{"bad", map[string]any{"delay": 1}}}
	got := IndexedSection(raw, Actions)
	if assert.Len(t, got, 1) {
		assert.Equal(t, 1, got[0].Index)
	}
}

func TestClassify(t *testing.T) {
	dev := Classify(Triggers, map[string]any{"platform": "device", "device_id": "abc", "domain": "binary_sensor", "type": "motion", "entity_id": "f00d"})
	assert.Equal(t, Device{DeviceID: "abc", Domain: "binary_sensor", Type: "motion", EntityRef: "f00d"}, dev)

	st := Classify(Conditions, map[string]any{"condition": "state", "entity_id": "light.a", "state": "on"})
	assert.Equal(t, State{EntityIDs: []string{"light.a"}, To: "on"}, st)

	tpl := Classify(Conditions, map[string]any{"condition": "template", "value_template": "{{ true }}"})
	assert.Equal(t, Template{Expr: "{{ true }}"}, tpl)

	act := Classify(Actions, map[string]any{"device_id": "abc", "domain": "light", "type": "turn_on"})
	assert.IsType(t, Device{}, act)

	svc := Classify(Actions, map[string]any{"service": "light.turn_on", "target": map[string]any{"entity_id": "light.a"}})
	if s, ok := svc.(Service); assert.True(t, ok) {
		assert.Equal(t, "light.turn_on", s.Service)
	}

	assert.Equal(t, Unknown{}, Classify(Actions, map[string]any{"delay": "00:01:00"}))
	assert.Equal(t, Unknown{Discriminator: "sun"}, Classify(Triggers, map[string]any{"trigger": "sun"}))
}

func TestEntityRefs(t *testing.T) {
	item := map[string]any{
		"entity_id": "light.a",
		"target":    map[string]any{"entity_id": []any{"light.b", "switch.c"}},
		"data":      map[string]any{"entity_id": "fan.d"},
	}
	assert.ElementsMatch(t, []string{"light.a", "light.b", "switch.c", "fan.d"}, EntityRefs(item))
	assert.Empty(t, EntityRefs(map[string]any{"entity_id": "0123abcd"}))
}

func TestCollectKeyNested(t *testing.T) {
	raw := map[string]any{
		"actions": []any{
			map[string]any{"choose": []any{map[string]any{"sequence": []any{map[string]any{"device_id": "dev1"}}}}},
			map[string]any{"target": map[string]any{"device_id": []any{"dev2", "dev3"}}},
		},
	}
	assert.Equal(t, []string{"dev1", "dev2", "dev3"}, CollectKey(raw, "device_id"))
}

func TestIsEntityID(t *testing.T) {
	assert.True(t, IsEntityID("sensor.my_key_holder"))
	assert.False(t, IsEntityID("https://example.com"))
	assert.False(t, IsEntityID("abcdef"))
	assert.False(t, IsEntityID(".hidden"))
}
