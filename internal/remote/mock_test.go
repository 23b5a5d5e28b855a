package remote

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrSnakeDoc/cellar/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_PutGetDelete(t *testing.T) {
	store := NewMockStore()
	c := store.Client("archive")
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "a.bam")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	obj, err := c.Put(ctx, "p/a.bam", src, PutOptions{StorageClass: "STANDARD", Tags: map[string]string{models.PathTag: "a.bam"}})
	require.NoError(t, err)
	assert.EqualValues(t, 7, obj.Size)

	rc, err := c.Get(ctx, "p/a.bam", "")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	tags, err := c.Tags(ctx, "p/a.bam", "")
	require.NoError(t, err)
	assert.Equal(t, "a.bam", tags[models.PathTag])

	require.NoError(t, c.Delete(ctx, "p/a.bam", ""))
	_, err = c.Stat(ctx, "p/a.bam", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMockClient_ColdRestoreLifecycle(t *testing.T) {
	store := NewMockStore()
	store.Seed("archive", "cold.bam", []byte("zzz"), "DEEP_ARCHIVE")
	c := store.Client("archive")
	ctx := context.Background()

	_, err := c.Get(ctx, "cold.bam", "")
	assert.ErrorIs(t, err, ErrNotRestored)

	require.NoError(t, c.RequestRestore(ctx, "cold.bam", "", RestoreOptions{Days: 3}))
	assert.ErrorIs(t, c.RequestRestore(ctx, "cold.bam", "", RestoreOptions{Days: 3}), ErrRestoreInProgress)

	st, err := c.Stat(ctx, "cold.bam", "")
	require.NoError(t, err)
	assert.Equal(t, models.RestorePending, st.Restore)
	assert.Equal(t, models.TierCold, st.Tier)

	store.SetRestore("archive", "cold.bam", models.RestoreReady)
	_, err = c.Get(ctx, "cold.bam", "")
	assert.NoError(t, err)
}

func TestMockStore_FailNextAndListing(t *testing.T) {
	store := NewMockStore()
	store.Seed("b", "x/1", []byte("1"), "")
	store.Seed("b", "y/2", []byte("22"), "")
	c := store.Client("b")

	store.FailNext("list", 1)
	_, err := c.List(context.Background(), "x/")
	require.Error(t, err)

	objs, err := c.List(context.Background(), "x/")
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "x/1", objs[0].Key)
	assert.Equal(t, 2, store.Calls("list"))
}
