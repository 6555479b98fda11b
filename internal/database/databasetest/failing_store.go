package databasetest

import (
	"context"
	"fmt"

	"collab-rooms/internal/database"
	"collab-rooms/internal/models"
)

// FailingStore wraps a store and fails the operations whose flags are set.
// Reads fall through to the wrapped store unless FailReads is set.
type FailingStore struct {
	database.Store
	FailInsert bool
	FailUpdate bool
	FailReads  bool
	FailUsers  bool
}

func NewFailingStore(inner database.Store) *FailingStore {
	return &FailingStore{Store: inner}
}

func (f *FailingStore) InsertRoom(ctx context.Context, room *models.Room) error {
	if f.FailInsert {
		return fmt.Errorf("failingStore.InsertRoom")
	}
	return f.Store.InsertRoom(ctx, room)
}

func (f *FailingStore) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	if f.FailReads {
		return nil, fmt.Errorf("failingStore.GetRoom")
	}
	return f.Store.GetRoom(ctx, roomID)
}

func (f *FailingStore) UpdateRoom(ctx context.Context, room *models.Room) error {
	if f.FailUpdate {
		return fmt.Errorf("failingStore.UpdateRoom")
	}
	return f.Store.UpdateRoom(ctx, room)
}

func (f *FailingStore) ListPublicActiveRooms(ctx context.Context) ([]*models.Room, error) {
	if f.FailReads {
		return nil, fmt.Errorf("failingStore.ListPublicActiveRooms")
	}
	return f.Store.ListPublicActiveRooms(ctx)
}

func (f *FailingStore) ListActiveRooms(ctx context.Context) ([]*models.Room, error) {
	if f.FailReads {
		return nil, fmt.Errorf("failingStore.ListActiveRooms")
	}
	return f.Store.ListActiveRooms(ctx)
}

func (f *FailingStore) UpsertUser(ctx context.Context, user *models.User) error {
	if f.FailUsers {
		return fmt.Errorf("failingStore.UpsertUser")
	}
	return f.Store.UpsertUser(ctx, user)
}

// CollidingStore reports ErrDuplicateKey for the first Collisions inserts.
type CollidingStore struct {
	database.Store
	Collisions int
	Attempts   int
}

func (c *CollidingStore) InsertRoom(ctx context.Context, room *models.Room) error {
	c.Attempts++
	if c.Attempts <= c.Collisions {
		return database.ErrDuplicateKey
	}
	return c.Store.InsertRoom(ctx, room)
}
