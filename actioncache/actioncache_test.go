package actioncache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryCacheStoreFetchRoundTrip(t *testing.T) {
	c, err := NewMemoryCache(4)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok := c.Fetch(ctx, "rk1")
	require.False(t, ok)

	set := ArtifactSet{Outputs: []OutputFile{{Name: "out.dex", Data: []byte("bytes")}}}
	require.NoError(t, c.Store(ctx, "rk1", set))

	got, ok := c.Fetch(ctx, "rk1")
	require.True(t, ok)
	require.Equal(t, set, got)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewMemoryCache(1)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "rk1", ArtifactSet{}))
	require.NoError(t, c.Store(ctx, "rk2", ArtifactSet{}))

	_, ok := c.Fetch(ctx, "rk1")
	require.False(t, ok, "rk1 should have been evicted once rk2 was stored past the cap")
	_, ok = c.Fetch(ctx, "rk2")
	require.True(t, ok)
}

func TestDiskCacheStoreFetchRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, err := NewDiskCache(dir)
	require.NoError(t, err)
	ctx := context.Background()

	_, ok := c.Fetch(ctx, "rk1")
	require.False(t, ok)

	set := ArtifactSet{Outputs: []OutputFile{
		{Name: "classes.dex", Data: []byte("dexbytes")},
		{Name: "classes.dex.meta", Data: []byte("42")},
	}}
	require.NoError(t, c.Store(ctx, "rk1", set))

	got, ok := c.Fetch(ctx, "rk1")
	require.True(t, ok)
	require.ElementsMatch(t, set.Outputs, got.Outputs)
}

func TestDiskCacheStoreOverwritesPreviousEntry(t *testing.T) {
	dir := t.TempDir()
	c, err := NewDiskCache(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Store(ctx, "rk1", ArtifactSet{Outputs: []OutputFile{{Name: "a", Data: []byte("v1")}}}))
	require.NoError(t, c.Store(ctx, "rk1", ArtifactSet{Outputs: []OutputFile{{Name: "b", Data: []byte("v2")}}}))

	got, ok := c.Fetch(ctx, "rk1")
	require.True(t, ok)
	require.Len(t, got.Outputs, 1)
	require.Equal(t, "b", got.Outputs[0].Name)
}

func TestDiskCacheShardsEntryDirectories(t *testing.T) {
	dir := t.TempDir()
	c, err := NewDiskCache(dir)
	require.NoError(t, err)

	entry := c.entryDir("abcdef")
	require.Equal(t, filepath.Join(dir, "ab", "abcdef"), entry)
}
