package databasetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-rooms/internal/database"
	"collab-rooms/internal/models"
)

// VerifyStore verifies the database.Store interface.
func VerifyStore(t *testing.T, newStore func(t *testing.T) database.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("insert then get room", func(t *testing.T) {
		// Given
		store := newStore(t)
		room := NewRoom("ABC123", "u1", false)

		// When
		require.NoError(t, store.InsertRoom(ctx, room))
		actual, err := store.GetRoom(ctx, "ABC123")

		// Then
		require.NoError(t, err)
		assert.Equal(t, room.RoomID, actual.RoomID)
		assert.Equal(t, room.Name, actual.Name)
		require.Len(t, actual.Members, 1)
		assert.True(t, actual.Members[0].IsCreator)
		assert.True(t, room.CreatedAt.Equal(actual.CreatedAt))
	})

	t.Run("insert duplicate room id", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.InsertRoom(ctx, NewRoom("DUP001", "u1", false)))

		err := store.InsertRoom(ctx, NewRoom("DUP001", "u2", false))

		assert.ErrorIs(t, err, database.ErrDuplicateKey)
	})

	t.Run("get missing room", func(t *testing.T) {
		store := newStore(t)

		_, err := store.GetRoom(ctx, "NOPE00")

		assert.ErrorIs(t, err, database.ErrNoRecord)
	})

	t.Run("update room replaces document", func(t *testing.T) {
		// Given
		store := newStore(t)
		room := NewRoom("UPD001", "u1", false)
		require.NoError(t, store.InsertRoom(ctx, room))
		room.Messages = append(room.Messages, models.Message{ID: "m1", Text: "hi", UserID: "u1", Type: models.MessageKindText})
		room.IsActive = false

		// When
		require.NoError(t, store.UpdateRoom(ctx, room))

		// Then
		actual, err := store.GetRoom(ctx, "UPD001")
		require.NoError(t, err)
		assert.False(t, actual.IsActive)
		require.Len(t, actual.Messages, 1)
		assert.Equal(t, "hi", actual.Messages[0].Text)
	})

	t.Run("update missing room", func(t *testing.T) {
		store := newStore(t)

		err := store.UpdateRoom(ctx, NewRoom("GONE01", "u1", false))

		assert.ErrorIs(t, err, database.ErrNoRecord)
	})

	t.Run("list only public active rooms", func(t *testing.T) {
		// Given
		store := newStore(t)
		public := NewRoom("PUB001", "u1", false)
		private := NewRoom("PRV001", "u1", true)
		ended := NewRoom("END001", "u1", false)
		ended.IsActive = false
		for _, r := range []*models.Room{public, private, ended} {
			require.NoError(t, store.InsertRoom(ctx, r))
		}

		// When
		rooms, err := store.ListPublicActiveRooms(ctx)

		// Then
		require.NoError(t, err)
		require.Len(t, rooms, 1)
		assert.Equal(t, "PUB001", rooms[0].RoomID)
	})

	t.Run("list active rooms includes private ones", func(t *testing.T) {
		// Given
		store := newStore(t)
		public := NewRoom("PUB003", "u1", false)
		private := NewRoom("PRV003", "u1", true)
		private.CreatedAt = public.CreatedAt.Add(time.Second)
		ended := NewRoom("END003", "u1", true)
		ended.IsActive = false
		for _, r := range []*models.Room{public, private, ended} {
			require.NoError(t, store.InsertRoom(ctx, r))
		}

		// When
		rooms, err := store.ListActiveRooms(ctx)

		// Then
		require.NoError(t, err)
		require.Len(t, rooms, 2)
		assert.Equal(t, "PUB003", rooms[0].RoomID)
		assert.Equal(t, "PRV003", rooms[1].RoomID)
	})

	t.Run("list reflects room ended by update", func(t *testing.T) {
		store := newStore(t)
		room := NewRoom("PUB002", "u1", false)
		require.NoError(t, store.InsertRoom(ctx, room))
		room.IsActive = false
		require.NoError(t, store.UpdateRoom(ctx, room))

		rooms, err := store.ListPublicActiveRooms(ctx)

		require.NoError(t, err)
		assert.Empty(t, rooms)
	})

	t.Run("upsert then get user", func(t *testing.T) {
		// Given
		store := newStore(t)
		user := &models.User{UserID: "u1", Username: "alice", IsOnline: true, LastSeen: time.Now().UTC(), JoinedRooms: []string{"R1"}}
		require.NoError(t, store.UpsertUser(ctx, user))
		user.IsOnline = false
		require.NoError(t, store.UpsertUser(ctx, user))

		// When
		actual, err := store.GetUser(ctx, "u1")

		// Then
		require.NoError(t, err)
		assert.Equal(t, "alice", actual.Username)
		assert.False(t, actual.IsOnline)
		assert.Equal(t, []string{"R1"}, actual.JoinedRooms)
	})

	t.Run("get missing user", func(t *testing.T) {
		store := newStore(t)

		_, err := store.GetUser(ctx, "ghost")

		assert.ErrorIs(t, err, database.ErrNoRecord)
	})
}

// NewRoom builds a room document with its creator as the only member.
func NewRoom(roomID, creatorID string, isPrivate bool) *models.Room {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Room{
		RoomID:    roomID,
		Name:      "Room " + roomID,
		Topic:     "arrays",
		CreatedBy: "creator",
		CreatorID: creatorID,
		IsPrivate: isPrivate,
		IsActive:  true,
		Members: []models.Member{{
			UserID:       creatorID,
			Username:     "creator",
			ConnectionID: "conn-" + creatorID,
			IsActive:     true,
			IsCreator:    true,
			JoinedAt:     now,
		}},
		Messages:  []models.Message{},
		CreatedAt: now,
	}
}
