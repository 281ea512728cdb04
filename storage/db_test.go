package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Database {
	t.Helper()
	dir := t.TempDir()

	level, err := NewLevelDB(filepath.Join(dir, "level"))
	require.NoError(t, err)
	t.Cleanup(level.Close)

	boltDB, err := NewBoltDB(filepath.Join(dir, "bolt", "state.db"), nil)
	require.NoError(t, err)
	t.Cleanup(boltDB.Close)

	return map[string]Database{
		"memory":  NewMemDB(),
		"leveldb": level,
		"bolt":    boltDB,
	}
}

func TestDatabaseRoundTrip(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := db.Get([]byte("missing"))
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, db.Put([]byte("k"), []byte("v1")))
			value, err := db.Get([]byte("k"))
			require.NoError(t, err)
			require.Equal(t, []byte("v1"), value)

			require.NoError(t, db.Delete([]byte("k")))
			_, err = db.Get([]byte("k"))
			require.ErrorIs(t, err, ErrNotFound)
			require.NoError(t, db.Delete([]byte("k")))
		})
	}
}

func TestBatchWrite(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put([]byte("gone"), []byte("x")))

			batch := db.NewBatch()
			batch.Put([]byte("a"), []byte("1"))
			batch.Put([]byte("b"), []byte("2"))
			batch.Delete([]byte("gone"))
			require.Equal(t, 3, batch.Len())

			_, err := db.Get([]byte("a"))
			require.ErrorIs(t, err, ErrNotFound, "batch must not apply before Write")

			require.NoError(t, batch.Write())
			require.Zero(t, batch.Len())

			value, err := db.Get([]byte("b"))
			require.NoError(t, err)
			require.Equal(t, []byte("2"), value)
			_, err = db.Get([]byte("gone"))
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestLevelDBPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := NewLevelDB(dir)
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("key"), []byte("value")))
	db.Close()

	reopened, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer reopened.Close()
	value, err := reopened.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), value)
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	db, err := NewBoltDB(path, nil)
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("key"), []byte("value")))
	db.Close()

	reopened, err := NewBoltDB(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	value, err := reopened.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), value)
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	buf := []byte("abc")
	require.NoError(t, db.Put([]byte("k"), buf))
	buf[0] = 'z'
	value, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), value)
	require.Equal(t, []string{"k"}, db.Keys())
}
