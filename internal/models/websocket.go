package models

import (
	"encoding/json"
	"time"
)

type EventType string

// Inbound events.
const (
	EventCreateRoom     EventType = "create-room"
	EventJoinRoom       EventType = "join-room"
	EventSendMessage    EventType = "send-message"
	EventEndRoom        EventType = "end-room"
	EventKickUser       EventType = "kick-user"
	EventTyping         EventType = "typing"
	EventLeaveRoom      EventType = "leave-room"
	EventGetRooms       EventType = "get-rooms"
	EventGetRoomDetails EventType = "get-room-details"
)

// Outbound events.
const (
	EventRoomCreated        EventType = "room-created"
	EventNewRoomAvailable   EventType = "new-room-available"
	EventRoomJoined         EventType = "room-joined"
	EventUserJoined         EventType = "user-joined"
	EventMemberCountUpdated EventType = "member-count-updated"
	EventNewMessage         EventType = "new-message"
	EventRoomError          EventType = "room-error"
	EventRoomEnded          EventType = "room-ended"
	EventKickedFromRoom     EventType = "kicked-from-room"
	EventUserKicked         EventType = "user-kicked"
	EventUserLeft           EventType = "user-left"
	EventRoomsList          EventType = "rooms-list"
	EventRoomDetails        EventType = "room-details"
	EventUserTyping         EventType = "user-typing"
)

// Envelope is the frame exchanged over the socket in both directions.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type CreateRoomRequest struct {
	RoomName  string `json:"roomName" validate:"required,max=100"`
	Topic     string `json:"topic" validate:"required,max=200"`
	CreatedBy string `json:"createdBy" validate:"required,max=100"`
	UserID    string `json:"userId" validate:"required,max=128"`
	IsPrivate bool   `json:"isPrivate"`
}

type JoinRoomRequest struct {
	RoomID   string `json:"roomId" validate:"required,max=32"`
	Username string `json:"username" validate:"required,max=100"`
	UserID   string `json:"userId" validate:"required,max=128"`
}

type SendMessageRequest struct {
	RoomID   string `json:"roomId" validate:"required,max=32"`
	Message  string `json:"message" validate:"required,max=4000"`
	Username string `json:"username" validate:"required,max=100"`
}

type RoomRequest struct {
	RoomID string `json:"roomId" validate:"required,max=32"`
}

type KickUserRequest struct {
	RoomID       string `json:"roomId" validate:"required,max=32"`
	TargetUserID string `json:"targetUserId" validate:"required,max=128"`
}

type TypingRequest struct {
	RoomID   string `json:"roomId" validate:"required,max=32"`
	Username string `json:"username" validate:"required,max=100"`
	IsTyping bool   `json:"isTyping"`
}

type RoomCreatedEvent struct {
	RoomID string `json:"roomId"`
	Room   *Room  `json:"room"`
}

type RoomEvent struct {
	Room any `json:"room"`
}

type UserPresenceEvent struct {
	Username  string    `json:"username"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

type MemberCountEvent struct {
	Count int `json:"count"`
}

type RoomErrorEvent struct {
	Message string `json:"message"`
}

type RoomEndedEvent struct {
	Message   string    `json:"message"`
	EndedBy   string    `json:"endedBy"`
	Timestamp time.Time `json:"timestamp"`
}

type KickedFromRoomEvent struct {
	RoomName  string    `json:"roomName"`
	KickedBy  string    `json:"kickedBy"`
	Timestamp time.Time `json:"timestamp"`
}

type UserKickedEvent struct {
	Username  string    `json:"username"`
	KickedBy  string    `json:"kickedBy"`
	Timestamp time.Time `json:"timestamp"`
}

type UserTypingEvent struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}
