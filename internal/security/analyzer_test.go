package security

import (
	"context"
	"testing"

	"haca/internal/document"
	"haca/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func parse(t *testing.T, src string) *document.Document {
	t.Helper()
	var root yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &root))
	node := document.Top(&root)
	raw, err := document.DecodeMapping(node)
	require.NoError(t, err)
	return &document.Document{Kind: document.KindAutomation, EntityID: "automation.test", Alias: "Test", Raw: raw, Node: node}
}

func TestHardcodedSecrets(t *testing.T) {
	d := parse(t, `
alias: Test
actions:
  - action: rest_command.call
    data:
      api_key: abcdEFGH1234ijklMNOP5678qrstUVWX
      token: !secret weather_token
      access_token: sensor.api_token_holder
      password: hunter22
      passwd: short
      secret: "{{ states('input_text.secret_value') }}"
      client_secret: https://example.com/callback/abcdef
      bearer_token: has a space in it really
`)
	issues := AnalyzeDocument(d)
	secrets := make(map[string]models.Issue)
	for _, i := range issues {
		require.Equal(t, models.IssueHardcodedSecret, i.Type)
		secrets[i.Location] = i
	}
	require.Len(t, secrets, 2)
	assert.Contains(t, secrets, "actions[0].data.api_key")
	assert.Contains(t, secrets, "actions[0].data.password")
	assert.Equal(t, models.SeverityHigh, secrets["actions[0].data.api_key"].Severity)
}

func TestHardcodedSecretValueShapes(t *testing.T) {
	scalar := func(v string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
	}
	tests := []struct {
		name  string
		key   string
		value *yaml.Node
		want  bool
	}{
		{"alphanumeric", "api_key", scalar("0123456789abcdefABCDEF0123456789"), true},
		{"entity id", "api_key", scalar("sensor.my_weather_api_key"), false},
		{"too short", "token", scalar("abc123"), false},
		{"secret tag", "token", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!secret", Value: "my_long_secret_name_here"}, false},
		{"env var tag", "token", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!env_var", Value: "MY_LONG_ENVIRONMENT_TOKEN"}, false},
		{"number", "password", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: "1234567890"}, false},
		{"other key", "username", scalar("0123456789abcdefABCDEF0123456789"), false},
		{"upper case key", "API_KEY", scalar("0123456789abcdefABCDEF0123456789"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HardcodedSecret(tt.key, tt.value))
		})
	}
}

func TestSensitiveDataExposure(t *testing.T) {
	d := parse(t, `
alias: Leak
description: sends a token
actions:
  - action: notify.mobile_app_phone
    data:
      message: "Your token: abcdefghijklmnopqrstuvwx"
  - action: persistent_notification.create
    data:
      message: "Backup done"
  - action: light.turn_on
    data:
      message: "password=supersecret"
`)
	issues := AnalyzeDocument(d)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueSensitiveDataExposure, issues[0].Type)
	assert.Equal(t, "action[0].data.message", issues[0].Location)
}

func TestAnalyzeWithoutNodes(t *testing.T) {
	set := &document.Set{Scripts: []*document.Document{{
		Kind:     document.KindScript,
		EntityID: "script.call",
		Raw: map[string]any{"sequence": []any{map[string]any{
			"action": "rest_command.x",
			"data":   map[string]any{"api_key": "0123456789abcdefABCDEF0123456789"},
		}}},
	}}}
	issues, err := Analyze(context.Background(), set)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "sequence[0].data.api_key", issues[0].Location)
	assert.Equal(t, models.CategoryScript, models.CategoryForEntity(issues[0].EntityID))
}
