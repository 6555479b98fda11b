package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-rooms/internal/database"
	"collab-rooms/internal/database/databasetest"
)

func TestUserService_Presence(t *testing.T) {
	ctx := context.Background()
	service := NewUserService(database.NewMemoryDB())

	require.NoError(t, service.RecordJoin(ctx, "u1", "alice", "R1"))
	require.NoError(t, service.RecordJoin(ctx, "u1", "alice", "R2"))
	require.NoError(t, service.RecordJoin(ctx, "u1", "alice", "R1"))

	user, err := service.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, user.IsOnline)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, []string{"R1", "R2"}, user.JoinedRooms)
	assert.False(t, user.LastSeen.IsZero())

	require.NoError(t, service.RecordLeave(ctx, "u1", "R1"))
	require.NoError(t, service.MarkOffline(ctx, "u1"))

	user, err = service.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, user.IsOnline)
	assert.Equal(t, []string{"R2"}, user.JoinedRooms)
}

func TestUserService_MissingUser(t *testing.T) {
	service := NewUserService(database.NewMemoryDB())

	_, err := service.GetUser(context.Background(), "ghost")

	assert.ErrorIs(t, err, database.ErrNoRecord)
	assert.NoError(t, service.MarkOffline(context.Background(), ""))
}

func TestUserService_PersistenceError(t *testing.T) {
	store := databasetest.NewFailingStore(database.NewMemoryDB())
	store.FailUsers = true
	service := NewUserService(store)

	err := service.RecordJoin(context.Background(), "u1", "alice", "R1")

	assert.ErrorIs(t, err, ErrPersistence)
}
