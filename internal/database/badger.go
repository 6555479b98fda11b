package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"collab-rooms/internal/models"
	"collab-rooms/pkg/logger"

	"github.com/dgraph-io/badger/v4"
)

const (
	roomKeyPrefix = "room:"
	userKeyPrefix = "user:"
)

// BadgerDB is an embedded store for single node deployments. Documents are
// JSON encoded under "room:{id}" and "user:{id}".
type BadgerDB struct {
	db *badger.DB
}

// NewBadgerDB opens the store at path. An empty path keeps everything in memory.
func NewBadgerDB(path string) (*BadgerDB, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", path, err)
	}

	logger.Info("Opened badger store at %q", path)
	return &BadgerDB{db: db}, nil
}

func (b *BadgerDB) Close() error {
	return b.db.Close()
}

func roomKey(roomID string) []byte {
	return []byte(roomKeyPrefix + roomID)
}

func userKey(userID string) []byte {
	return []byte(userKeyPrefix + userID)
}

func (b *BadgerDB) InsertRoom(_ context.Context, room *models.Room) error {
	doc, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to encode room: %w", err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(roomKey(room.RoomID))
		switch {
		case err == nil:
			return ErrDuplicateKey
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(roomKey(room.RoomID), doc)
	})
}

func (b *BadgerDB) GetRoom(_ context.Context, roomID string) (*models.Room, error) {
	room := &models.Room{}
	if err := b.get(roomKey(roomID), room); err != nil {
		return nil, err
	}
	return room, nil
}

func (b *BadgerDB) UpdateRoom(_ context.Context, room *models.Room) error {
	doc, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to encode room: %w", err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(roomKey(room.RoomID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNoRecord
			}
			return err
		}
		return txn.Set(roomKey(room.RoomID), doc)
	})
}

// ListPublicActiveRooms scans the room prefix and filters in process.
func (b *BadgerDB) ListPublicActiveRooms(_ context.Context) ([]*models.Room, error) {
	return b.scanRooms(func(room *models.Room) bool {
		return room.IsActive && !room.IsPrivate
	})
}

func (b *BadgerDB) ListActiveRooms(_ context.Context) ([]*models.Room, error) {
	return b.scanRooms(func(room *models.Room) bool {
		return room.IsActive
	})
}

func (b *BadgerDB) scanRooms(keep func(room *models.Room) bool) ([]*models.Room, error) {
	var rooms []*models.Room
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := []byte(roomKeyPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			room := &models.Room{}
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, room)
			})
			if err != nil {
				return err
			}
			if keep(room) {
				rooms = append(rooms, room)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms, nil
}

func (b *BadgerDB) GetUser(_ context.Context, userID string) (*models.User, error) {
	user := &models.User{}
	if err := b.get(userKey(userID), user); err != nil {
		return nil, err
	}
	return user, nil
}

func (b *BadgerDB) UpsertUser(_ context.Context, user *models.User) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(userKey(user.UserID), doc)
	})
}

func (b *BadgerDB) get(key []byte, out any) error {
	return b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNoRecord
			}
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, out)
		})
	})
}
