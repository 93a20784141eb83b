package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB creates a new in-memory database with schema applied.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestOpenConnection_ForeignKeysEnabled(t *testing.T) {
	conn, err := OpenConnection(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	var on int
	require.NoError(t, conn.QueryRow("PRAGMA foreign_keys").Scan(&on))
	assert.Equal(t, 1, on)
}

func TestSQLiteDatabase_Operations(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	t.Run("create and finish", func(t *testing.T) {
		db := newTestDB(t)

		id, err := db.CreateOperation(ctx, "login", "", start)
		require.NoError(t, err)
		assert.NotZero(t, id)

		require.NoError(t, db.FinishOperation(ctx, id, "user-1", "success", start.Add(time.Second)))

		ops, err := db.ListOperations(ctx, "", 10)
		require.NoError(t, err)
		require.Len(t, ops, 1)

		op := ops[0]
		assert.Equal(t, id, op.ID)
		assert.Equal(t, "login", op.Operation)
		assert.Equal(t, "user-1", op.UserID)
		assert.Equal(t, "success", op.Status)
		assert.True(t, op.StartedAt.Equal(start))
		assert.True(t, op.FinishedAt.Valid)
	})

	t.Run("finish unknown id fails", func(t *testing.T) {
		db := newTestDB(t)

		err := db.FinishOperation(ctx, 42, "", "error", start)
		assert.Error(t, err)
	})

	t.Run("list is newest first, limited and filtered", func(t *testing.T) {
		db := newTestDB(t)

		for i, user := range []string{"a", "b", "a", "a"} {
			_, err := db.CreateOperation(ctx, "account add", user, start.Add(time.Duration(i)*time.Minute))
			require.NoError(t, err)
		}

		all, err := db.ListOperations(ctx, "", 3)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Greater(t, all[0].ID, all[1].ID)
		assert.Greater(t, all[1].ID, all[2].ID)

		onlyA, err := db.ListOperations(ctx, "a", 10)
		require.NoError(t, err)
		assert.Len(t, onlyA, 3)
		for _, op := range onlyA {
			assert.Equal(t, "a", op.UserID)
		}
	})

	t.Run("delete operations for user", func(t *testing.T) {
		db := newTestDB(t)

		_, err := db.CreateOperation(ctx, "login", "a", start)
		require.NoError(t, err)
		_, err = db.CreateOperation(ctx, "login", "b", start)
		require.NoError(t, err)

		require.NoError(t, db.DeleteOperationsForUser(ctx, "a"))

		ops, err := db.ListOperations(ctx, "", 10)
		require.NoError(t, err)
		require.Len(t, ops, 1)
		assert.Equal(t, "b", ops[0].UserID)
	})
}

func TestSQLiteDatabase_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pm.db")

	db, err := NewSQLiteDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.Blobs().Write(ctx, "data/users.json", []byte(`[]`)))
	require.NoError(t, db.Close())

	db, err = NewSQLiteDatabase(path)
	require.NoError(t, err)
	defer db.Close()

	data, err := db.Blobs().Read(ctx, "data/users.json")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), data)
}
