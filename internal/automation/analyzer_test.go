package automation

import (
	"context"
	"testing"

	"haca/internal/document"
	"haca/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func automationDoc(raw map[string]any) *document.Document {
	return &document.Document{
		Kind:     document.KindAutomation,
		EntityID: "automation.test",
		Alias:    document.String(raw, "alias"),
		Raw:      raw,
	}
}

func ofType(issues []models.Issue, t models.IssueType) []models.Issue {
	var out []models.Issue
	for _, i := range issues {
		if i.Type == t {
			out = append(out, i)
		}
	}
	return out
}

func TestDeviceTriggerFiresBothRules(t *testing.T) {
	doc := automationDoc(map[string]any{
		"alias":       "Hall",
		"description": "d",
		"triggers": []any{
			map[string]any{"platform": "device", "device_id": "abc", "domain": "binary_sensor", "type": "motion"},
			map[string]any{"platform": "state", "entity_id": "light.x", "device_id": "def"},
			map[string]any{"trigger": "device", "domain": "light", "type": "turned_on"},
		},
	})
	issues := AnalyzeAutomation(doc)

	byID := ofType(issues, models.IssueDeviceIDInTrigger)
	require.Len(t, byID, 2)
	assert.Equal(t, "trigger[0]", byID[0].Location)
	assert.Equal(t, "abc", byID[0].DeviceID)
	assert.Equal(t, "trigger[1]", byID[1].Location)

	byPlatform := ofType(issues, models.IssueDeviceTriggerPlatform)
	require.Len(t, byPlatform, 2)
	assert.Equal(t, "trigger[0]", byPlatform[0].Location)
	assert.Equal(t, "trigger[2]", byPlatform[1].Location)

	for _, i := range append(byID, byPlatform...) {
		assert.Equal(t, models.SeverityHigh, i.Severity)
		assert.True(t, i.FixAvailable)
	}
}

func TestLegacySectionKeysAreAnalyzed(t *testing.T) {
	doc := automationDoc(map[string]any{
		"alias":     "Legacy",
		"trigger":   map[string]any{"platform": "device", "device_id": "abc"},
		"condition": map[string]any{"condition": "device", "device_id": "abc"},
		"action":    map[string]any{"device_id": "abc", "domain": "light", "type": "turn_on"},
	})
	issues := AnalyzeAutomation(doc)
	assert.Len(t, ofType(issues, models.IssueDeviceIDInTrigger), 1)
	assert.Len(t, ofType(issues, models.IssueDeviceIDInCondition), 1)
	assert.Len(t, ofType(issues, models.IssueDeviceConditionPlatform), 1)
	assert.Len(t, ofType(issues, models.IssueDeviceIDInAction), 1)
	assert.Len(t, ofType(issues, models.IssueNoDescription), 1)
	assert.Empty(t, ofType(issues, models.IssueNoAlias))
}

func TestTemplateSimpleState(t *testing.T) {
	tests := []struct {
		expr   string
		simple bool
	}{
		{"{{ is_state('a.b','on') }}", true},
		{"{{ is_state('a.b','on') and is_state('c.d','off') }}", false},
		{"{{ is_state('a.b','on') or is_state('c.d','off') }}", false},
		{"{{ not is_state('a.b','on') }}", false},
		{"{{ x and not is_state('a.b','on') }}", false},
		{"{{ is_state('a.b', states('input_select.mode')) }}", false},
		{"{{ is_state(trigger.entity_id, 'on') }}", false},
		{"{{ is_state('a.b','on') | bool }}", false},
		{"{{ states('sensor.t') | float > 20 }}", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.simple, IsSimpleStateTemplate(tt.expr))
		})
	}
}

func TestTemplateConditionRules(t *testing.T) {
	doc := automationDoc(map[string]any{
		"alias": "T",
		"conditions": []any{
			map[string]any{"condition": "template", "value_template": "{{ is_state('a.b','on') }}"},
			map[string]any{"condition": "template", "value_template": "{{ is_state('a.b','on') and is_state('c.d','off') }}"},
			map[string]any{"condition": "template", "value_template": "{{ states('sensor.t') | float > 20 }}"},
			map[string]any{"condition": "template", "value_template": "{{ now().hour >= 7 and now().hour < 22 }}"},
		},
	})
	issues := AnalyzeAutomation(doc)

	simple := ofType(issues, models.IssueTemplateSimpleState)
	require.Len(t, simple, 1)
	assert.Equal(t, "condition[0]", simple[0].Location)

	numeric := ofType(issues, models.IssueTemplateNumericComparison)
	require.Len(t, numeric, 1)
	assert.Equal(t, "condition[2]", numeric[0].Location)

	timeCheck := ofType(issues, models.IssueTemplateTimeCheck)
	require.Len(t, timeCheck, 1)
	assert.Contains(t, timeCheck[0].Recommendation, `after: "07:00:00", before: "22:00:00"`)
}

func TestParseSimpleState(t *testing.T) {
	entity, state, ok := ParseSimpleState(`{{ is_state( "binary_sensor.door" , 'off' ) }}`)
	assert.True(t, ok)
	assert.Equal(t, "binary_sensor.door", entity)
	assert.Equal(t, "off", state)

	_, _, ok = ParseSimpleState("{{ true }}")
	assert.False(t, ok)
}

func TestMotionSingleMode(t *testing.T) {
	base := func(mode string, action map[string]any) *document.Document {
		raw := map[string]any{
			"alias":    "Motion",
			"triggers": []any{map[string]any{"platform": "state", "entity_id": "binary_sensor.Hall_Motion", "to": "on"}},
			"actions":  []any{map[string]any{"service": "light.turn_on"}, action},
		}
		if mode != "" {
			raw["mode"] = mode
		}
		return automationDoc(raw)
	}

	issues := ofType(AnalyzeAutomation(base("", map[string]any{"delay": "00:05:00"})), models.IssueIncorrectModeMotion)
	require.Len(t, issues, 1)
	assert.Equal(t, "mode", issues[0].Location)
	assert.Contains(t, issues[0].Recommendation, "restart")

	assert.Len(t, ofType(AnalyzeAutomation(base("single", map[string]any{"wait_for_trigger": []any{}})), models.IssueIncorrectModeMotion), 1)
	assert.Empty(t, ofType(AnalyzeAutomation(base("restart", map[string]any{"delay": 5})), models.IssueIncorrectModeMotion))
	assert.Empty(t, ofType(AnalyzeAutomation(base("", map[string]any{"service": "light.turn_off"})), models.IssueIncorrectModeMotion))
}

func TestActionRules(t *testing.T) {
	doc := automationDoc(map[string]any{
		"alias": "A",
		"actions": []any{
			map[string]any{"service": "homeassistant.turn_on", "target": map[string]any{"device_id": "d1"}},
			map[string]any{"wait_template": "{{ is_state('lock.front', 'locked') }}"},
			"not a mapping",
		},
		"triggers": []any{map[string]any{"platform": "zone", "zone": "zone.home"}},
	})
	issues := AnalyzeAutomation(doc)

	target := ofType(issues, models.IssueDeviceIDInTarget)
	require.Len(t, target, 1)
	assert.Equal(t, "action[0].target", target[0].Location)
	assert.Equal(t, "d1", target[0].DeviceID)
	assert.Len(t, ofType(issues, models.IssueDeprecatedService), 1)
	assert.Len(t, ofType(issues, models.IssueWaitTemplate), 1)
	assert.Len(t, ofType(issues, models.IssueZoneNoEntity), 1)
}

func TestScriptsAndScenes(t *testing.T) {
	set := &document.Set{
		Scripts: []*document.Document{
			{Kind: document.KindScript, EntityID: "script.empty", Raw: map[string]any{"sequence": []any{}}},
			{Kind: document.KindScript, EntityID: "script.dev", Raw: map[string]any{
				"description": "x",
				"sequence":    []any{map[string]any{"device_id": "d", "domain": "light", "type": "turn_on"}},
			}},
		},
		Scenes: []*document.Document{
			{Kind: document.KindScene, EntityID: "scene.nothing", Raw: map[string]any{"id": "1"}},
		},
	}
	issues, err := Analyze(context.Background(), set)
	require.NoError(t, err)

	assert.Len(t, ofType(issues, models.IssueEmptyScript), 1)
	dev := ofType(issues, models.IssueDeviceIDInAction)
	require.Len(t, dev, 1)
	assert.Equal(t, "sequence[0]", dev[0].Location)
	assert.False(t, dev[0].FixAvailable)
	assert.Len(t, ofType(issues, models.IssueEmptyScene), 1)

	for _, i := range issues {
		assert.NotEqual(t, models.CategoryAutomation, models.CategoryForEntity(i.EntityID))
	}
}

func TestAnalyzeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	set := &document.Set{Automations: []*document.Document{automationDoc(map[string]any{})}}
	_, err := Analyze(ctx, set)
	assert.ErrorIs(t, err, context.Canceled)
}
