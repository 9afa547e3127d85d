package entity

import (
	"context"
	"testing"
	"time"

	"haca/internal/document"
	"haca/internal/models"
	"haca/internal/refindex"
	"haca/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func hallAutomation() *document.Document {
	return &document.Document{
		Kind:     document.KindAutomation,
		EntityID: "automation.hall",
		Alias:    "Hall",
		Raw: map[string]any{
			"triggers": []any{map[string]any{"platform": "state", "entity_id": "binary_sensor.hall_motion"}},
			"actions": []any{
				map[string]any{"action": "light.turn_on", "target": map[string]any{"entity_id": "light.hal"}},
				map[string]any{"action": "light.turn_on", "target": map[string]any{"entity_id": "light.porch"}},
				map[string]any{"device_id": "gone", "domain": "light", "type": "turn_on"},
				map[string]any{"device_id": "dev1", "domain": "light", "type": "turn_on"},
			},
		},
	}
}

func run(t *testing.T, p *registry.Static, docs ...*document.Document) ([]models.Issue, []models.Issue) {
	t.Helper()
	in := Input{Docs: docs, Snapshot: p.Snapshot(), Index: refindex.Build(docs), Now: now}
	entityIssues, automationIssues, err := Analyze(context.Background(), in)
	require.NoError(t, err)
	return entityIssues, automationIssues
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

func TestStateRules(t *testing.T) {
	p := &registry.Static{
		StateList: []models.State{
			{EntityID: "binary_sensor.hall_motion", State: "unavailable", LastUpdated: now},
			{EntityID: "sensor.attic", State: "unavailable", LastUpdated: now},
			{EntityID: "sensor.garage", State: "unknown", LastUpdated: now},
			{EntityID: "light.porch", State: "off", LastUpdated: now.Add(-10 * 24 * time.Hour)},
			{EntityID: "sun.sun", State: "below_horizon", LastUpdated: now.Add(-30 * 24 * time.Hour)},
			{EntityID: "sensor.h_a_c_a_score", State: "unavailable"},
			{EntityID: "light.hall", State: "on", LastUpdated: now},
		},
	}
	issues, _ := run(t, p, hallAutomation())

	unavailable := ofType(issues, models.IssueUnavailableEntity)
	require.Len(t, unavailable, 2)
	assert.Equal(t, "binary_sensor.hall_motion", unavailable[0].EntityID)
	assert.Equal(t, models.SeverityHigh, unavailable[0].Severity)
	assert.Contains(t, unavailable[0].Message, "automation.hall")
	assert.Equal(t, models.SeverityMedium, unavailable[1].Severity)

	unknown := ofType(issues, models.IssueUnknownState)
	require.Len(t, unknown, 1)
	assert.Equal(t, models.SeverityLow, unknown[0].Severity)

	stale := ofType(issues, models.IssueStaleEntity)
	require.Len(t, stale, 1)
	assert.Equal(t, "light.porch", stale[0].EntityID)
	assert.Equal(t, models.SeverityMedium, stale[0].Severity)
	assert.Contains(t, stale[0].Message, "10 days")
}

func TestReferenceRules(t *testing.T) {
	p := &registry.Static{
		EntityList: []models.EntityEntry{
			{ID: "r1", EntityID: "light.porch", DisabledBy: "user"},
		},
		DeviceList: []models.DeviceEntry{{ID: "dev1"}},
		StateList: []models.State{
			{EntityID: "binary_sensor.hall_motion", State: "off", LastUpdated: now},
			{EntityID: "light.hall", State: "on", LastUpdated: now},
		},
	}
	issues, _ := run(t, p, hallAutomation())

	zombies := ofType(issues, models.IssueZombieEntity)
	require.Len(t, zombies, 1)
	assert.Equal(t, "light.hal", zombies[0].EntityID)
	assert.Equal(t, models.SeverityHigh, zombies[0].Severity)
	assert.Equal(t, []string{"automation.hall"}, zombies[0].Related)
	require.NotEmpty(t, zombies[0].Suggestions)
	assert.Equal(t, "light.hall", zombies[0].Suggestions[0])
	assert.False(t, zombies[0].FixAvailable)

	disabled := ofType(issues, models.IssueDisabledButReferenced)
	require.Len(t, disabled, 1)
	assert.Equal(t, "light.porch", disabled[0].EntityID)
	assert.Contains(t, disabled[0].Message, "user")

	broken := ofType(issues, models.IssueBrokenDeviceReference)
	require.Len(t, broken, 1)
	assert.Equal(t, "gone", broken[0].DeviceID)
	assert.Equal(t, "automation.hall", broken[0].EntityID)
}

func TestTemplatedTargetIsNotAZombie(t *testing.T) {
	doc := &document.Document{
		Kind:     document.KindAutomation,
		EntityID: "automation.mirror",
		Alias:    "Mirror",
		Raw: map[string]any{
			"triggers": []any{map[string]any{"platform": "state", "entity_id": "light.a"}},
			"actions": []any{
				map[string]any{"action": "light.turn_on", "target": map[string]any{"entity_id": "{{ trigger.entity_id }}"}},
			},
		},
	}
	p := &registry.Static{
		StateList: []models.State{{EntityID: "light.a", State: "on", LastUpdated: now}},
	}
	issues, _ := run(t, p, doc)
	assert.Empty(t, ofType(issues, models.IssueZombieEntity))
}

func TestGhostRegistryEntries(t *testing.T) {
	p := &registry.Static{
		EntityList: []models.EntityEntry{
			{ID: "1", EntityID: "sensor.orphan", ConfigEntryID: "missing"},
			{ID: "2", EntityID: "sensor.broken", ConfigEntryID: "c_failed"},
			{ID: "3", EntityID: "sensor.retrying", ConfigEntryID: "c_retry"},
			{ID: "4", EntityID: "sensor.fine", ConfigEntryID: "c_retry"},
			{ID: "5", EntityID: "sensor.off", ConfigEntryID: "missing", DisabledBy: "integration"},
			{ID: "6", EntityID: "binary_sensor.hall_motion", ConfigEntryID: "missing"},
		},
		ConfigEntryList: []models.ConfigEntry{
			{EntryID: "c_failed", Domain: "zha", State: "migration_error"},
			{EntryID: "c_retry", Domain: "hue", State: "setup_retry"},
		},
		StateList: []models.State{{EntityID: "sensor.fine", State: "1", LastUpdated: now}},
	}
	issues, _ := run(t, p, hallAutomation())

	ghosts := ofType(issues, models.IssueGhostRegistryEntry)
	require.Len(t, ghosts, 3)
	ids := map[string]models.Severity{}
	for _, g := range ghosts {
		ids[g.EntityID] = g.Severity
	}
	assert.Equal(t, models.SeverityMedium, ids["sensor.orphan"])
	assert.Equal(t, models.SeverityMedium, ids["sensor.broken"])
	assert.Equal(t, models.SeverityHigh, ids["binary_sensor.hall_motion"])
	assert.NotContains(t, ids, "sensor.retrying")
}

func TestUnusedHelpersAndNeverTriggered(t *testing.T) {
	p := &registry.Static{
		StateList: []models.State{
			{EntityID: "input_boolean.guest", State: "off"},
			{EntityID: "counter.visits", State: "3"},
			{EntityID: "input_boolean.used", State: "on"},
			{EntityID: "automation.hall", State: "on", Attributes: map[string]any{"last_triggered": nil, "friendly_name": "Hall"}},
			{EntityID: "automation.porch", State: "on", Attributes: map[string]any{"last_triggered": "2024-05-31T10:00:00+00:00"}},
		},
	}
	doc := &document.Document{
		Kind:     document.KindScript,
		EntityID: "script.x",
		Raw:      map[string]any{"sequence": []any{map[string]any{"action": "input_boolean.turn_on", "entity_id": "input_boolean.used"}}},
	}
	issues, never := run(t, p, doc)

	unused := ofType(issues, models.IssueUnusedHelper)
	require.Len(t, unused, 2)
	assert.Equal(t, "counter.visits", unused[0].EntityID)
	assert.Equal(t, "input_boolean.guest", unused[1].EntityID)
	assert.Equal(t, models.SeverityLow, unused[0].Severity)

	require.Len(t, never, 1)
	assert.Equal(t, "automation.hall", never[0].EntityID)
	assert.Equal(t, "Hall", never[0].Alias)
	assert.Equal(t, models.CategoryAutomation, models.CategoryForEntity(never[0].EntityID))
}

func TestSuggest(t *testing.T) {
	known := []string{"light.kitchen", "light.kitchen_2", "light.hallway", "sensor.kitchen_temp", "switch.pump"}
	got := Suggest("light.kitchn", known)
	require.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), 3)
	assert.Equal(t, "light.kitchen", got[0])
	assert.NotContains(t, got, "switch.pump")

	assert.Empty(t, Suggest("zzz.qqq", known))
}

func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &registry.Static{StateList: []models.State{{EntityID: "light.a", State: "on"}}}
	_, _, err := Analyze(ctx, Input{Snapshot: p.Snapshot(), Index: refindex.Build(nil)})
	assert.ErrorIs(t, err, context.Canceled)
}
