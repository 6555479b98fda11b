package database

import (
	"context"
	"errors"

	"collab-rooms/internal/models"
)

var (
	// ErrNoRecord is returned when a keyed lookup finds nothing.
	ErrNoRecord = errors.New("record not found")

	// ErrDuplicateKey is returned by InsertRoom when the room id is taken.
	ErrDuplicateKey = errors.New("duplicate key")
)

// RoomRepository stores whole room documents keyed by room id. Callers are
// responsible for serializing read-modify-write cycles on the same key.
type RoomRepository interface {
	InsertRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)
	UpdateRoom(ctx context.Context, room *models.Room) error
	ListPublicActiveRooms(ctx context.Context) ([]*models.Room, error)
	// ListActiveRooms returns every room not yet ended, private ones included.
	ListActiveRooms(ctx context.Context) ([]*models.Room, error)
}

type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	UpsertUser(ctx context.Context, user *models.User) error
}

type Store interface {
	RoomRepository
	UserRepository
	Close() error
}
