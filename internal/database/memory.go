package database

import (
	"context"
	"sort"
	"sync"

	"collab-rooms/internal/models"
)

// MemoryDB keeps documents in process. Every read and write copies the
// document so callers never share slices with the store.
type MemoryDB struct {
	mu    sync.RWMutex
	rooms map[string]*models.Room
	users map[string]*models.User
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		rooms: make(map[string]*models.Room),
		users: make(map[string]*models.User),
	}
}

func (db *MemoryDB) Close() error {
	return nil
}

func (db *MemoryDB) InsertRoom(_ context.Context, room *models.Room) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.rooms[room.RoomID]; exists {
		return ErrDuplicateKey
	}
	db.rooms[room.RoomID] = room.Clone()
	return nil
}

func (db *MemoryDB) GetRoom(_ context.Context, roomID string) (*models.Room, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	room, ok := db.rooms[roomID]
	if !ok {
		return nil, ErrNoRecord
	}
	return room.Clone(), nil
}

func (db *MemoryDB) UpdateRoom(_ context.Context, room *models.Room) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.rooms[room.RoomID]; !ok {
		return ErrNoRecord
	}
	db.rooms[room.RoomID] = room.Clone()
	return nil
}

func (db *MemoryDB) ListPublicActiveRooms(_ context.Context) ([]*models.Room, error) {
	return db.listRooms(func(room *models.Room) bool {
		return room.IsActive && !room.IsPrivate
	}), nil
}

func (db *MemoryDB) ListActiveRooms(_ context.Context) ([]*models.Room, error) {
	return db.listRooms(func(room *models.Room) bool {
		return room.IsActive
	}), nil
}

func (db *MemoryDB) listRooms(keep func(room *models.Room) bool) []*models.Room {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var rooms []*models.Room
	for _, room := range db.rooms {
		if keep(room) {
			rooms = append(rooms, room.Clone())
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms
}

func (db *MemoryDB) GetUser(_ context.Context, userID string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	user, ok := db.users[userID]
	if !ok {
		return nil, ErrNoRecord
	}
	cp := *user
	cp.JoinedRooms = append([]string(nil), user.JoinedRooms...)
	return &cp, nil
}

func (db *MemoryDB) UpsertUser(_ context.Context, user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	cp := *user
	cp.JoinedRooms = append([]string(nil), user.JoinedRooms...)
	db.users[user.UserID] = &cp
	return nil
}
