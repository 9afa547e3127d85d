package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"haca/internal/config"
	"haca/internal/document"
	"haca/internal/hass"
	"haca/internal/history"
	"haca/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	p, closeFn, err := NewProvider(&config.Config{ConfigDir: t.TempDir(), RegistrySource: config.RegistryStorage})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &registry.Storage{}, p)

	p, closeFn, err = NewProvider(&config.Config{RegistrySource: config.RegistryWebsocket, HassURL: "http://ha.local:8123", HassToken: "t"})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &hass.Client{}, p)

	_, _, err = NewProvider(&config.Config{RegistrySource: config.RegistryWebsocket, HassURL: "gopher://x"})
	assert.Error(t, err)
}

func TestOfflineEngineRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	doc := "- id: '1'\n  alias: Porch\n  actions:\n    - action: light.turn_on\n      target:\n        entity_id: light.porch\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, document.AutomationsFile), []byte(doc), 0o644))

	cfg := &config.Config{ConfigDir: dir, RegistrySource: config.RegistryStorage, HistoryLimit: 5}
	eng, done, err := NewOfflineEngine(cfg)
	require.NoError(t, err)
	defer done()
	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Positive(t, res.Total, "missing description is reported")

	recent, err := history.NewFile(dir, 5).Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, res.Score, recent[0].Score)
}
