package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"collab-rooms/internal/database"
	"collab-rooms/internal/models"
	"collab-rooms/pkg/logger"

	"github.com/samber/lo"
)

// maxRoomIDAttempts bounds the retries after a room id collision.
const maxRoomIDAttempts = 5

// RoomService is the authority over rooms, membership and message history.
// Every mutation is a load, mutate, persist cycle run under a per-room lock.
type RoomService struct {
	db        database.RoomRepository
	locks     *keyedMutex
	now       func() time.Time
	newRoomID func() string
	newMsgID  func(time.Time) string

	indexMu sync.RWMutex
	joined  map[string]map[string]struct{} // identity -> active room ids
}

type RoomServiceOption func(*RoomService)

// WithClock overrides the time source used for all timestamps.
func WithClock(now func() time.Time) RoomServiceOption {
	return func(s *RoomService) {
		s.now = now
	}
}

func WithRoomIDGenerator(gen func() string) RoomServiceOption {
	return func(s *RoomService) {
		s.newRoomID = gen
	}
}

func WithMessageIDGenerator(gen func(time.Time) string) RoomServiceOption {
	return func(s *RoomService) {
		s.newMsgID = gen
	}
}

func NewRoomService(db database.RoomRepository, options ...RoomServiceOption) *RoomService {
	s := &RoomService{
		db:        db,
		locks:     newKeyedMutex(),
		now:       func() time.Time { return time.Now().UTC() },
		newRoomID: NewRoomIDGenerator(),
		newMsgID:  NewMessageIDGenerator(),
		joined:    make(map[string]map[string]struct{}),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

type CreateRoomParams struct {
	Name         string `json:"roomName" validate:"required,max=100"`
	Topic        string `json:"topic" validate:"required,max=200"`
	CreatorName  string `json:"createdBy" validate:"required,max=100"`
	CreatorID    string `json:"userId" validate:"required,max=128"`
	ConnectionID string `json:"connectionId"`
	IsPrivate    bool   `json:"isPrivate"`
}

// JoinResult carries the joined room and, for a rejoin, the connection the
// member was previously bound to.
type JoinResult struct {
	Room                 *models.Room
	Rejoined             bool
	PreviousConnectionID string
}

func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (*models.Room, error) {
	if err := Validate(params); err != nil {
		return nil, err
	}

	now := s.now()
	room := &models.Room{
		Name:      params.Name,
		Topic:     params.Topic,
		CreatedBy: params.CreatorName,
		CreatorID: params.CreatorID,
		IsPrivate: params.IsPrivate,
		IsActive:  true,
		Members: []models.Member{{
			UserID:       params.CreatorID,
			Username:     params.CreatorName,
			ConnectionID: params.ConnectionID,
			IsActive:     true,
			IsCreator:    true,
			JoinedAt:     now,
		}},
		Messages:  []models.Message{},
		CreatedAt: now,
	}

	for attempt := 1; ; attempt++ {
		room.RoomID = s.newRoomID()

		unlock := s.locks.Lock(room.RoomID)
		err := s.db.InsertRoom(ctx, room)
		if err == nil {
			s.reindex(room)
		}
		unlock()

		switch {
		case err == nil:
			return room, nil
		case errors.Is(err, database.ErrDuplicateKey) && attempt < maxRoomIDAttempts:
			logger.Debug("Room id %s already taken, retrying", room.RoomID)
		default:
			return nil, persistenceError("create room", err)
		}
	}
}

func (s *RoomService) JoinRoom(ctx context.Context, roomID, identity, displayName, connectionID string) (*JoinResult, error) {
	if identity == "" || displayName == "" {
		return nil, fmt.Errorf("%w: userId and username are required", ErrValidation)
	}

	result := &JoinResult{}
	room, err := s.mutate(ctx, roomID, func(room *models.Room) (bool, error) {
		if !room.IsActive {
			return false, ErrRoomNotFound
		}

		now := s.now()
		if idx := room.FindMember(identity); idx >= 0 {
			member := &room.Members[idx]
			result.Rejoined = true
			result.PreviousConnectionID = member.ConnectionID
			member.ConnectionID = connectionID
			member.IsActive = true
			member.RejoinedAt = &now
			return true, nil
		}

		room.Members = append(room.Members, models.Member{
			UserID:       identity,
			Username:     displayName,
			ConnectionID: connectionID,
			IsActive:     true,
			IsCreator:    false,
			JoinedAt:     now,
		})
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	result.Room = room
	return result, nil
}

// AddMessage appends msg to the room history, keeping the newest
// models.MaxMessageHistory entries. An empty id or timestamp is filled in.
func (s *RoomService) AddMessage(ctx context.Context, roomID string, msg models.Message) (*models.Room, error) {
	return s.mutate(ctx, roomID, func(room *models.Room) (bool, error) {
		if !room.IsActive {
			return false, ErrRoomNotFound
		}

		if msg.Timestamp.IsZero() {
			msg.Timestamp = s.now()
		}
		if msg.Type == "" {
			msg.Type = models.MessageKindText
		}

		taken := lo.SliceToMap(room.Messages, func(m models.Message) (string, struct{}) {
			return m.ID, struct{}{}
		})
		for msg.ID == "" || lo.HasKey(taken, msg.ID) {
			msg.ID = s.newMsgID(msg.Timestamp)
		}

		room.Messages = append(room.Messages, msg)
		if overflow := len(room.Messages) - models.MaxMessageHistory; overflow > 0 {
			room.Messages = append([]models.Message(nil), room.Messages[overflow:]...)
		}
		return true, nil
	})
}

// LeaveRoom marks the member inactive. It reports whether anything changed;
// leaving twice, leaving an ended room or leaving as a stranger is a no-op.
func (s *RoomService) LeaveRoom(ctx context.Context, roomID, identity string) (*models.Room, bool, error) {
	changed := false
	room, err := s.mutate(ctx, roomID, func(room *models.Room) (bool, error) {
		if !room.IsActive {
			return false, nil
		}

		idx := room.FindMember(identity)
		if idx < 0 || !room.Members[idx].IsActive {
			return false, nil
		}

		now := s.now()
		member := &room.Members[idx]
		member.IsActive = false
		member.LeftAt = &now
		member.KickedAt = nil
		changed = true
		return true, nil
	})
	if err != nil {
		return nil, false, err
	}
	return room, changed, nil
}

// EndRoom closes the room for good. Only the creator may end it.
func (s *RoomService) EndRoom(ctx context.Context, roomID, requester string) (*models.Room, error) {
	return s.mutate(ctx, roomID, func(room *models.Room) (bool, error) {
		if err := authorizeCreator(room, requester); err != nil {
			return false, err
		}

		now := s.now()
		room.IsActive = false
		room.EndedAt = &now
		for i := range room.Members {
			if room.Members[i].IsActive {
				room.Members[i].IsActive = false
				room.Members[i].LeftAt = &now
				room.Members[i].KickedAt = nil
			}
		}
		return true, nil
	})
}

// KickUser deactivates target on behalf of the creator. Kicking the creator,
// an inactive member or an unknown identity changes nothing.
func (s *RoomService) KickUser(ctx context.Context, roomID, requester, target string) (*models.Room, bool, error) {
	kicked := false
	room, err := s.mutate(ctx, roomID, func(room *models.Room) (bool, error) {
		if err := authorizeCreator(room, requester); err != nil {
			return false, err
		}

		idx := room.FindMember(target)
		if idx < 0 {
			return false, nil
		}
		member := &room.Members[idx]
		if !member.IsActive || member.IsCreator {
			return false, nil
		}

		now := s.now()
		member.IsActive = false
		member.KickedAt = &now
		member.LeftAt = nil
		kicked = true
		return true, nil
	})
	if err != nil {
		return nil, false, err
	}
	return room, kicked, nil
}

func (s *RoomService) GetRoomByID(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := s.load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsActive {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// GetRoomDetails returns the room as seen by identity, which must be an
// active member.
func (s *RoomService) GetRoomDetails(ctx context.Context, roomID, identity string) (*models.RoomDetails, error) {
	room, err := s.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	idx := room.FindMember(identity)
	if idx < 0 || !room.Members[idx].IsActive {
		return nil, ErrNotMember
	}

	details := &models.RoomDetails{Room: *room, IsCreator: room.Members[idx].IsCreator}
	details.Members = room.ActiveMembers()
	return details, nil
}

func (s *RoomService) GetPublicRooms(ctx context.Context) ([]models.RoomSummary, error) {
	rooms, err := s.db.ListPublicActiveRooms(ctx)
	if err != nil {
		return nil, persistenceError("list public rooms", err)
	}

	return lo.Map(rooms, func(room *models.Room, _ int) models.RoomSummary {
		return room.Summary()
	}), nil
}

// RoomsFor lists the rooms in which identity is currently an active member.
func (s *RoomService) RoomsFor(identity string) []string {
	s.indexMu.RLock()
	defer s.indexMu.RUnlock()

	rooms := lo.Keys(s.joined[identity])
	sort.Strings(rooms)
	return rooms
}

// ReleaseStaleMembers marks every member still active in a stored room as
// left. It runs once at startup, before any connection exists, since no
// member can be attached to a connection of a previous process. It returns
// how many members were released.
func (s *RoomService) ReleaseStaleMembers(ctx context.Context) (int, error) {
	rooms, err := s.db.ListActiveRooms(ctx)
	if err != nil {
		return 0, persistenceError("list active rooms", err)
	}

	released := 0
	for _, stored := range rooms {
		_, err := s.mutate(ctx, stored.RoomID, func(room *models.Room) (bool, error) {
			if !room.IsActive {
				return false, nil
			}
			now := s.now()
			count := 0
			for i := range room.Members {
				if room.Members[i].IsActive {
					room.Members[i].IsActive = false
					room.Members[i].LeftAt = &now
					room.Members[i].KickedAt = nil
					count++
				}
			}
			released += count
			return count > 0, nil
		})
		if err != nil {
			return released, err
		}
	}
	return released, nil
}

func authorizeCreator(room *models.Room, requester string) error {
	if !room.IsActive {
		return ErrRoomNotFound
	}
	if requester == "" || requester != room.CreatorID {
		return ErrUnauthorized
	}
	return nil
}

func (s *RoomService) load(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := s.db.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, database.ErrNoRecord) {
			return nil, ErrRoomNotFound
		}
		return nil, persistenceError("load room", err)
	}
	return room, nil
}

// mutate runs fn against the freshest copy of the room while holding the
// room's lock and persists the result when fn reports a change.
func (s *RoomService) mutate(ctx context.Context, roomID string, fn func(room *models.Room) (bool, error)) (*models.Room, error) {
	if roomID == "" {
		return nil, ErrRoomNotFound
	}

	unlock := s.locks.Lock(roomID)
	defer unlock()

	room, err := s.load(ctx, roomID)
	if err != nil {
		return nil, err
	}

	changed, err := fn(room)
	if err != nil {
		return nil, err
	}
	if !changed {
		return room, nil
	}

	if err := s.db.UpdateRoom(ctx, room); err != nil {
		if errors.Is(err, database.ErrNoRecord) {
			return nil, ErrRoomNotFound
		}
		return nil, persistenceError("update room", err)
	}
	s.reindex(room)
	return room, nil
}

// reindex brings the identity -> rooms index in line with the room's members.
// Callers hold the room lock.
func (s *RoomService) reindex(room *models.Room) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	for _, member := range room.Members {
		rooms := s.joined[member.UserID]
		if member.IsActive && room.IsActive {
			if rooms == nil {
				rooms = make(map[string]struct{})
				s.joined[member.UserID] = rooms
			}
			rooms[room.RoomID] = struct{}{}
			continue
		}
		if rooms != nil {
			delete(rooms, room.RoomID)
			if len(rooms) == 0 {
				delete(s.joined, member.UserID)
			}
		}
	}
}
