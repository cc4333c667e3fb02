package render

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	c, err := NewDiskCache(dir, time.Hour)
	require.NoError(t, err)

	key := Key("benin", "v1", "heatmap")
	_, ok := c.Get(key)
	assert.False(t, ok)

	require.NoError(t, c.Set(key, []byte("png")))
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte("png"), got)

	assert.NotEqual(t, key, Key("benin", "v2", "heatmap"))
	assert.NotEqual(t, Key("a", "bc"), Key("ab", "c"))
}

func TestDiskCache_Stale(t *testing.T) {
	dir := t.TempDir()
	c, err := NewDiskCache(dir, time.Minute)
	require.NoError(t, err)

	key := Key("togo")
	require.NoError(t, c.Set(key, []byte("old")))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(c.path(key), old, old))

	_, ok := c.Get(key)
	assert.False(t, ok)

	n, err := c.Prune()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = os.Stat(c.path(key))
	assert.True(t, os.IsNotExist(err))
}
