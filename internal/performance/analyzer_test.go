package performance

import (
	"context"
	"testing"
	"time"

	"haca/internal/document"
	"haca/internal/models"
	"haca/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(raw map[string]any) *document.Document {
	return &document.Document{Kind: document.KindAutomation, EntityID: "automation.test", Alias: "Test", Raw: raw}
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

func TestSelfLoop(t *testing.T) {
	loop := doc(map[string]any{
		"triggers": []any{map[string]any{"platform": "state", "entity_id": "light.x"}},
		"actions":  []any{map[string]any{"action": "light.toggle", "target": map[string]any{"entity_id": "light.x"}}},
	})
	issues := ofType(AnalyzeAutomation(loop), models.IssuePotentialSelfLoop)
	require.Len(t, issues, 1)
	assert.Equal(t, []string{"light.x"}, issues[0].Related)
	assert.Equal(t, "logic", issues[0].Location)
	assert.Contains(t, issues[0].Message, "light.x")

	other := doc(map[string]any{
		"triggers": []any{map[string]any{"platform": "state", "entity_id": "light.x"}},
		"actions":  []any{map[string]any{"action": "light.toggle", "data": map[string]any{"entity_id": "light.y"}}},
	})
	assert.Empty(t, ofType(AnalyzeAutomation(other), models.IssuePotentialSelfLoop))
}

func TestComplexityAndParallel(t *testing.T) {
	actions := make([]any, 11)
	for i := range actions {
		actions[i] = map[string]any{"delay": 1}
	}
	issues := AnalyzeAutomation(doc(map[string]any{"actions": actions, "mode": "parallel"}))
	assert.Len(t, ofType(issues, models.IssueHighComplexityActions), 1)
	parallel := ofType(issues, models.IssueHighParallelMax)
	require.Len(t, parallel, 1)
	assert.Equal(t, "mode", parallel[0].Location)

	assert.Empty(t, ofType(AnalyzeAutomation(doc(map[string]any{"mode": "parallel", "max": 3})), models.IssueHighParallelMax))
	assert.Empty(t, ofType(AnalyzeAutomation(doc(map[string]any{"mode": "parallel", "max": "3"})), models.IssueHighParallelMax))
	assert.Empty(t, ofType(AnalyzeAutomation(doc(map[string]any{"mode": "parallel", "max": "{{ states('input_number.runs') | int }}"})), models.IssueHighParallelMax))
	assert.Len(t, ofType(AnalyzeAutomation(doc(map[string]any{"mode": "parallel", "max": "8"})), models.IssueHighParallelMax), 1)
	assert.Empty(t, ofType(AnalyzeAutomation(doc(map[string]any{"actions": actions[:10]})), models.IssueHighComplexityActions))
}

func TestExpensiveTemplates(t *testing.T) {
	issues := AnalyzeAutomation(doc(map[string]any{
		"conditions": []any{
			map[string]any{"condition": "template", "value_template": "{{ states | selectattr('state','eq','on') | list | count > 0 }}"},
			map[string]any{"condition": "template", "value_template": "{{ states | selectattr('state','eq','off') | list | count > 0 }}"},
			map[string]any{"condition": "template", "value_template": "{{ states | list | count }}"},
		},
	}))
	assert.Len(t, ofType(issues, models.IssueExpensiveSelectattr), 1)
	assert.Len(t, ofType(issues, models.IssueExpensiveStatesAll), 1)

	scoped := AnalyzeAutomation(doc(map[string]any{
		"actions": []any{map[string]any{"action": "notify.x", "data": map[string]any{"message": "{{ states.light | selectattr('state','eq','on') | map(attribute='name') | join(', ') }}"}}},
	}))
	assert.Empty(t, ofType(scoped, models.IssueExpensiveSelectattr))
	assert.Empty(t, ofType(scoped, models.IssueExpensiveStatesAll))
}

func TestSnapshotRules(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p := &registry.Static{StateList: []models.State{
		{EntityID: "automation.fast", Attributes: map[string]any{"last_triggered": now.Add(-10 * time.Second).Format(time.RFC3339Nano)}},
		{EntityID: "automation.busy", Attributes: map[string]any{"last_triggered": now.Add(-50 * time.Second).Format(time.RFC3339Nano)}},
		{EntityID: "automation.calm", Attributes: map[string]any{"last_triggered": now.Add(-10 * time.Minute).Format(time.RFC3339Nano)}},
		{EntityID: "automation.never", Attributes: map[string]any{"last_triggered": nil}},
		{EntityID: "sensor.kitchen_power", Attributes: map[string]any{}},
		{EntityID: "sensor.grid_energy", Attributes: map[string]any{"state_class": "total_increasing"}},
		{EntityID: "sensor.h_a_c_a_power", Attributes: map[string]any{}},
		{EntityID: "sensor.temperature", Attributes: map[string]any{}},
	}}
	issues, err := Analyze(context.Background(), &document.Set{}, p.Snapshot(), now)
	require.NoError(t, err)

	very := ofType(issues, models.IssueVeryHighTriggerFrequency)
	require.Len(t, very, 1)
	assert.Equal(t, "automation.fast", very[0].EntityID)
	assert.Equal(t, models.SeverityHigh, very[0].Severity)

	high := ofType(issues, models.IssueHighTriggerFrequency)
	require.Len(t, high, 1)
	assert.Equal(t, "automation.busy", high[0].EntityID)

	missing := ofType(issues, models.IssueMissingStateClass)
	require.Len(t, missing, 1)
	assert.Equal(t, "sensor.kitchen_power", missing[0].EntityID)
}
