package redis

import (
	"context"
	"os"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestCache connects to TEST_REDIS_ADDR and flushes the selected
// database
func newTestCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	c := NewCache(NewRedisClient(addr), 0)
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.Client().FlushDB(ctx).Err())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestEntityDocsKey(t *testing.T) {
	assert.Equal(t, "entity:light.hall:docs", EntityDocsKey("light.hall"))
}

func TestReportRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	data, err := c.Report(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, c.StoreReport(ctx, []byte(`{"health_score":97}`)))
	data, err = c.Report(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"health_score":97}`, string(data))
}

func TestKnownSignaturesAreReplaced(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.ReplaceKnownSignatures(ctx, []string{"a|no_alias|x", "b|no_alias|y"}))
	require.NoError(t, c.ReplaceKnownSignatures(ctx, []string{"c|no_alias|z"}))

	known, err := c.KnownSignatures(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"c|no_alias|z": true}, known)

	require.NoError(t, c.ReplaceKnownSignatures(ctx, nil))
	known, err = c.KnownSignatures(ctx)
	require.NoError(t, err)
	assert.Empty(t, known)
}

func TestIndexReferencesDropsStaleEntities(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.IndexReferences(ctx, map[string][]string{
		"light.hall":  {"automation.a", "script.b"},
		"light.porch": {"automation.a"},
	}))
	require.NoError(t, c.IndexReferences(ctx, map[string][]string{
		"light.hall": {"automation.a"},
	}))

	docs, err := c.DocumentsFor(ctx, "light.hall")
	require.NoError(t, err)
	sort.Strings(docs)
	assert.Equal(t, []string{"automation.a"}, docs)

	docs, err = c.DocumentsFor(ctx, "light.porch")
	require.NoError(t, err)
	assert.Empty(t, docs)
}
