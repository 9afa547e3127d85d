package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup struct {
	unique     map[string]string
	registered map[string]bool
}

func (f fakeLookup) EntityForUniqueID(platform, uniqueID string) (string, bool) {
	id, ok := f.unique[uniqueID]
	return id, ok
}

func (f fakeLookup) Registered(entityID string) bool {
	return f.registered[entityID]
}

const automationsYAML = `- id: '1001'
  alias: Hall Light
  triggers:
  - platform: state
    entity_id: binary_sensor.hall_motion
  actions:
  - service: light.turn_on
- alias: Porch Light
  trigger:
    platform: sun
    event: sunset
- just a string
- id: '1003'
  alias: Orphan
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadMissingFilesAreEmpty(t *testing.T) {
	set, err := Load(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Empty(t, set.All())
}

func TestLoadAutomationsEntityIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, AutomationsFile, automationsYAML)

	reg := fakeLookup{
		unique:     map[string]string{"1001": "automation.hallway"},
		registered: map[string]bool{"automation.porch_light": true},
	}
	docs, root, err := LoadAutomations(dir, reg)
	require.NoError(t, err)
	require.NotNil(t, root)
	require.Len(t, docs, 3)

	assert.Equal(t, "automation.hallway", docs[0].EntityID)
	assert.Equal(t, "automation.porch_light", docs[1].EntityID)
	assert.Equal(t, "automation.unknown_1003", docs[2].EntityID)
	assert.Equal(t, 3, docs[2].Index)

	assert.Len(t, docs[1].Items(Triggers), 1)
	assert.Equal(t, "trigger[0]", docs[1].Location(Triggers, 0))
}

func TestLoadScriptsAndScenes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ScriptsFile, `bedtime:
  alias: Bedtime
  sequence:
  - service: light.turn_off
empty_one:
  sequence: []
`)
	writeFile(t, dir, ScenesFile, `- id: '42'
  name: Movie Night
  entities:
    light.tv: 'off'
- name: No Id
  entities: {}
`)
	set, err := Load(dir, nil)
	require.NoError(t, err)
	require.Len(t, set.Scripts, 2)
	assert.Equal(t, "script.bedtime", set.Scripts[0].EntityID)
	assert.Equal(t, "sequence[0]", set.Scripts[0].Location(Actions, 0))
	assert.Len(t, set.Scripts[0].Items(Actions), 1)
	assert.Empty(t, set.Scripts[0].Items(Triggers))

	require.Len(t, set.Scenes, 1)
	assert.Equal(t, "scene.movie_night", set.Scenes[0].EntityID)
	assert.NotNil(t, set.ByEntityID("scene.movie_night"))
}

func TestParseAutomationsRejectsMapping(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, AutomationsFile, "alias: not a list\n")
	_, _, err := LoadAutomations(dir, nil)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestLoadSkipsMalformedFiles(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"scenes not a list", ScenesFile, "movie:\n  entities: {}\n"},
		{"scripts not a mapping", ScriptsFile, "- alias: x\n"},
		{"scripts syntax error", ScriptsFile, "a:\n  sequence: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, AutomationsFile, automationsYAML)
			writeFile(t, dir, tt.file, tt.content)

			set, err := Load(dir, nil)
			require.NoError(t, err)
			assert.Len(t, set.Automations, 3)
			assert.Empty(t, set.Scripts)
			assert.Empty(t, set.Scenes)
		})
	}
}

func TestLoadReportsReadFailures(t *testing.T) {
	dir := t.TempDir()
	// a directory in place of the file cannot be read
	require.NoError(t, os.Mkdir(filepath.Join(dir, ScenesFile), 0o755))
	_, err := Load(dir, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformed)
}

func TestToNodeOrdersDiscriminatorFirst(t *testing.T) {
	n, err := ToNode(map[string]any{"to": "on", "entity_id": "light.a", "platform": "state"})
	require.NoError(t, err)
	out, err := Render(n)
	require.NoError(t, err)
	assert.Equal(t, "platform: state\nentity_id: light.a\nto: \"on\"\n", string(out))
}
