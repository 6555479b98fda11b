package services

import (
	"context"
	"errors"
	"time"

	"collab-rooms/internal/database"
	"collab-rooms/internal/models"

	"github.com/samber/lo"
)

// UserService keeps the presence fields of user records up to date.
type UserService struct {
	db    database.UserRepository
	locks *keyedMutex
	now   func() time.Time
}

func NewUserService(db database.UserRepository) *UserService {
	return &UserService{
		db:    db,
		locks: newKeyedMutex(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// RecordJoin marks the user online and adds roomID to its joined rooms.
func (s *UserService) RecordJoin(ctx context.Context, userID, username, roomID string) error {
	return s.update(ctx, userID, func(user *models.User) {
		if username != "" {
			user.Username = username
		}
		user.IsOnline = true
		if !lo.Contains(user.JoinedRooms, roomID) {
			user.JoinedRooms = append(user.JoinedRooms, roomID)
		}
	})
}

// RecordLeave drops roomID from the user's joined rooms.
func (s *UserService) RecordLeave(ctx context.Context, userID, roomID string) error {
	return s.update(ctx, userID, func(user *models.User) {
		user.JoinedRooms = lo.Without(user.JoinedRooms, roomID)
	})
}

func (s *UserService) MarkOffline(ctx context.Context, userID string) error {
	return s.update(ctx, userID, func(user *models.User) {
		user.IsOnline = false
	})
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.db.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNoRecord) {
			return nil, err
		}
		return nil, persistenceError("load user", err)
	}
	return user, nil
}

func (s *UserService) update(ctx context.Context, userID string, fn func(user *models.User)) error {
	if userID == "" {
		return nil
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	user, err := s.db.GetUser(ctx, userID)
	switch {
	case errors.Is(err, database.ErrNoRecord):
		user = &models.User{UserID: userID, JoinedRooms: []string{}}
	case err != nil:
		return persistenceError("load user", err)
	}

	fn(user)
	user.LastSeen = s.now()

	if err := s.db.UpsertUser(ctx, user); err != nil {
		return persistenceError("save user", err)
	}
	return nil
}
