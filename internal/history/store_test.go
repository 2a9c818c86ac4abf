package history

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducnote/ducnote/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func newResult(t *testing.T, started time.Time) *core.RunResult {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return &core.RunResult{
		ID:          id.String(),
		Outcome:     core.RunPublic,
		Destination: "/content/drive/MyDrive/ComfyUI",
		PublicURL:   "https://abc.trycloudflare.com",
		StartedAt:   started,
		FinishedAt:  started.Add(90 * time.Second),
		Records: []core.InstallationRecord{
			{Locator: "https://github.com/a/b", Category: "custom-extensions", Kind: core.LinkRepository, Outcome: core.OutcomeInstalled, Bytes: 10},
			{Locator: "https://x.test/m.bin", Category: "lora-models", Kind: core.LinkFile, Outcome: core.OutcomeFailed, Err: errors.New("HTTP 404")},
		},
		Warnings: []string{"https://x.test/m.bin: HTTP 404"},
	}
}

func TestStoreRecordAndGet(t *testing.T) {
	store := openTestStore(t)
	res := newResult(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	require.NoError(t, store.Record(res))

	entry, err := store.Get(res.ID)
	require.NoError(t, err)
	assert.Equal(t, core.RunPublic, entry.Outcome)
	assert.Equal(t, res.PublicURL, entry.PublicURL)
	assert.Equal(t, 90*time.Second, entry.Duration())
	require.Len(t, entry.Records, 2)
	assert.Equal(t, "repository", entry.Records[0].Kind)
	assert.Equal(t, "HTTP 404", entry.Records[1].Error)
	assert.Equal(t, 1, entry.Count(core.OutcomeFailed))
}

func TestStoreListNewestFirst(t *testing.T) {
	store := openTestStore(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		res := newResult(t, base.Add(time.Duration(i)*time.Hour))
		ids = append(ids, res.ID)
		require.NoError(t, store.Record(res))
		// v7 IDs are only ordered across milliseconds.
		time.Sleep(2 * time.Millisecond)
	}

	entries, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, ids[2], entries[0].ID)
	assert.Equal(t, ids[0], entries[2].ID)

	limited, err := store.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStorePrune(t *testing.T) {
	store := openTestStore(t)
	base := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(newResult(t, base)))
		time.Sleep(2 * time.Millisecond)
	}

	deleted, err := store.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	entries, err := store.List(0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestStoreGetMissing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Get("nope")
	assert.True(t, errors.Is(err, ErrNotFound), fmt.Sprint(err))
}

func TestStoreRejectsEmptyID(t *testing.T) {
	store := openTestStore(t)
	assert.Error(t, store.Record(&core.RunResult{}))
	assert.Error(t, store.Record(nil))
}

func TestStoreClosed(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.List(0)
	assert.ErrorIs(t, err, ErrStoreClosed)
}
