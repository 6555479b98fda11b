package database_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-rooms/internal/config"
	"collab-rooms/internal/database"
	"collab-rooms/internal/database/databasetest"
)

func Test_MemoryDB_VerifyStore(t *testing.T) {
	databasetest.VerifyStore(t, func(t *testing.T) database.Store {
		return database.NewMemoryDB()
	})
}

func Test_BadgerDB_VerifyStore(t *testing.T) {
	databasetest.VerifyStore(t, func(t *testing.T) database.Store {
		store, err := database.NewBadgerDB("")
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func Test_BadgerDB_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir()

	store, err := database.NewBadgerDB(path)
	require.NoError(t, err)
	require.NoError(t, store.InsertRoom(ctx, databasetest.NewRoom("DISK01", "u1", false)))
	require.NoError(t, store.Close())

	reopened, err := database.NewBadgerDB(path)
	require.NoError(t, err)
	defer reopened.Close()

	room, err := reopened.GetRoom(ctx, "DISK01")
	require.NoError(t, err)
	assert.Equal(t, "u1", room.CreatorID)
}

func Test_PostgresDB_VerifyStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	databasetest.VerifyStore(t, func(t *testing.T) database.Store {
		store, err := database.NewPostgresDB(url)
		require.NoError(t, err)
		_, err = store.Pool().Exec(context.Background(), "TRUNCATE rooms, users")
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func Test_MemoryDB_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryDB()
	require.NoError(t, store.InsertRoom(ctx, databasetest.NewRoom("COPY01", "u1", false)))

	room, err := store.GetRoom(ctx, "COPY01")
	require.NoError(t, err)
	room.Members[0].IsActive = false

	again, err := store.GetRoom(ctx, "COPY01")
	require.NoError(t, err)
	assert.True(t, again.Members[0].IsActive)
}

func Test_Open(t *testing.T) {
	store, err := database.Open(config.StoreConfig{Driver: config.StoreDriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &database.MemoryDB{}, store)

	_, err = database.Open(config.StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}
