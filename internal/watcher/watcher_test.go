package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelevant(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, DocumentFiles, time.Second, func() {})

	assert.True(t, w.Relevant(filepath.Join(dir, "automations.yaml")))
	assert.True(t, w.Relevant(filepath.Join(dir, "scenes.yaml")))
	assert.False(t, w.Relevant(filepath.Join(dir, ".automations.yaml.tmp.123")))
	assert.False(t, w.Relevant(filepath.Join(dir, ".haca_backups", "automations.yaml")))
	assert.False(t, w.Relevant(filepath.Join(dir, "configuration.yaml")))
}

func TestRunDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w := New(dir, DocumentFiles, 100*time.Millisecond, func() { calls.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	// Give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(dir, "automations.yaml")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("- alias: x\n"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	assert.NoError(t, <-done)
}
