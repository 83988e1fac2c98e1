package notestore

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/localrivet/neurogalaxy/internal/errortypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteNoteStore {
	t.Helper()
	store := NewSQLiteNoteStore()
	require.NoError(t, store.Initialize(filepath.Join(t.TempDir(), "notes.db")))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendListPreservesOrder(t *testing.T) {
	store := newTestStore(t)

	total, err := store.Append([]string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	total, err = store.Append([]string{"third"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	notes, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, notes)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestEmptyStore(t *testing.T) {
	store := newTestStore(t)

	notes, err := store.List()
	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)

	total, err := store.Append(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestClear(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Append([]string{"a", "b", "c"})
	require.NoError(t, err)

	removed, err := store.Clear()
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.db")

	store := NewSQLiteNoteStore()
	require.NoError(t, store.Initialize(path))
	_, err := store.Append([]string{"kept"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened := NewSQLiteNoteStore()
	require.NoError(t, reopened.Initialize(path))
	defer reopened.Close()

	notes, err := reopened.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, notes)
}

func TestConcurrentAppends(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Append([]string{"x", "y"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 16, count)
}

func TestUninitializedStore(t *testing.T) {
	store := NewSQLiteNoteStore()

	_, err := store.List()
	assert.True(t, errortypes.IsDatabaseError(err))
	_, err = store.Append([]string{"a"})
	assert.True(t, errortypes.IsDatabaseError(err))
	assert.NoError(t, store.Close())
}
