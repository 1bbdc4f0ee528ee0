package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLookupMissing(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	entry, err := store.Lookup(context.Background(), "docs/guide.md")
	require.NoError(t, err)
	require.Nil(t, entry)
}

func TestRecordAndLookup(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	in := Hash([]byte("before"))
	out := Hash([]byte("after"))
	require.NoError(t, store.Record(ctx, "docs/guide.md", in, out, "run-1"))

	entry, err := store.Lookup(ctx, "docs/guide.md")
	require.NoError(t, err)
	require.NotNil(t, entry)
	require.Equal(t, in, entry.ContentHash)
	require.Equal(t, out, entry.ResultHash)
	require.Equal(t, "run-1", entry.RunID)

	// Upsert replaces the previous record.
	require.NoError(t, store.Record(ctx, "docs/guide.md", out, out, "run-2"))
	entry, err = store.Lookup(ctx, "docs/guide.md")
	require.NoError(t, err)
	require.Equal(t, "run-2", entry.RunID)
	require.Equal(t, out, entry.ContentHash)
}

func TestUnchanged(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	result := Hash([]byte("normalized"))
	require.NoError(t, store.Record(ctx, "docs/a.md", Hash([]byte("raw")), result, "run-1"))

	same, err := store.Unchanged(ctx, "docs/a.md", result)
	require.NoError(t, err)
	require.True(t, same)

	same, err = store.Unchanged(ctx, "docs/a.md", Hash([]byte("edited")))
	require.NoError(t, err)
	require.False(t, same)

	same, err = store.Unchanged(ctx, "docs/unknown.md", result)
	require.NoError(t, err)
	require.False(t, same)
}

func TestForget(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Record(ctx, "docs/a.md", "x", "y", "run-1"))
	require.NoError(t, store.Forget(ctx, "docs/a.md"))

	entry, err := store.Lookup(ctx, "docs/a.md")
	require.NoError(t, err)
	require.Nil(t, entry)
}

func TestRunsNewestFirst(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"run-1", "run-2", "run-3"} {
		require.NoError(t, store.RecordRun(ctx, RunRecord{
			RunID:      id,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
			Files:      10,
			Changed:    i,
		}))
	}

	runs, err := store.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "run-3", runs[0].RunID)
	require.Equal(t, "run-2", runs[1].RunID)
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Record(context.Background(), "docs/a.md", "x", "y", "run-1"))
}

func TestHashIsStable(t *testing.T) {
	require.Equal(t, Hash([]byte("abc")), Hash([]byte("abc")))
	require.NotEqual(t, Hash([]byte("abc")), Hash([]byte("abd")))
	require.Len(t, Hash(nil), 64)
}
