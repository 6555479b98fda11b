package models

import (
	"time"

	"github.com/samber/lo"
)

// MaxMessageHistory is the number of most recent messages a room keeps.
const MaxMessageHistory = 100

const MessageKindText = "text"

type Room struct {
	RoomID    string     `json:"roomId"`
	Name      string     `json:"name"`
	Topic     string     `json:"topic"`
	CreatedBy string     `json:"createdBy"`
	CreatorID string     `json:"creatorId"`
	IsPrivate bool       `json:"isPrivate"`
	IsActive  bool       `json:"isActive"`
	Members   []Member   `json:"members"`
	Messages  []Message  `json:"messages"`
	CreatedAt time.Time  `json:"createdAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

type Member struct {
	UserID       string     `json:"userId"`
	Username     string     `json:"username"`
	ConnectionID string     `json:"connectionId"`
	IsActive     bool       `json:"isActive"`
	IsCreator    bool       `json:"isCreator"`
	JoinedAt     time.Time  `json:"joinedAt"`
	RejoinedAt   *time.Time `json:"rejoinedAt,omitempty"`
	LeftAt       *time.Time `json:"leftAt,omitempty"`
	KickedAt     *time.Time `json:"kickedAt,omitempty"`
}

type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Username  string    `json:"username"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
}

// RoomSummary is the public listing projection of a room.
type RoomSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Topic     string    `json:"topic"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	Members   int       `json:"members"`
	Active    bool      `json:"active"`
}

// RoomDetails is a room as seen by one of its active members.
type RoomDetails struct {
	Room
	IsCreator bool `json:"isCreator"`
}

// Clone returns a copy of the room whose member and message slices can be
// mutated without affecting r.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Members = make([]Member, len(r.Members))
	copy(c.Members, r.Members)
	c.Messages = make([]Message, len(r.Messages))
	copy(c.Messages, r.Messages)
	return &c
}

// FindMember returns the index of the member with the given identity, or -1.
func (r *Room) FindMember(userID string) int {
	_, idx, found := lo.FindIndexOf(r.Members, func(m Member) bool {
		return m.UserID == userID
	})
	if !found {
		return -1
	}
	return idx
}

func (r *Room) ActiveMembers() []Member {
	return lo.Filter(r.Members, func(m Member, _ int) bool {
		return m.IsActive
	})
}

func (r *Room) ActiveMemberCount() int {
	return lo.CountBy(r.Members, func(m Member) bool {
		return m.IsActive
	})
}

func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		ID:        r.RoomID,
		Name:      r.Name,
		Topic:     r.Topic,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
		Members:   r.ActiveMemberCount(),
		Active:    r.IsActive,
	}
}
