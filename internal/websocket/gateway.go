package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"collab-rooms/internal/models"
	"collab-rooms/internal/services"
	"collab-rooms/pkg/logger"

	"github.com/samber/lo"
)

const defaultCleanupTimeout = 10 * time.Second

type eventHandler func(ctx context.Context, c *Client, data json.RawMessage) error

// Gateway turns inbound socket events into room directory calls and fans the
// results out to the affected connections.
type Gateway struct {
	rooms    *services.RoomService
	users    *services.UserService
	registry *Registry
	hub      *Hub
	now      func() time.Time
	handlers map[models.EventType]eventHandler

	cleanupTimeout time.Duration
}

func NewGateway(rooms *services.RoomService, users *services.UserService, registry *Registry, hub *Hub) *Gateway {
	g := &Gateway{
		rooms:          rooms,
		users:          users,
		registry:       registry,
		hub:            hub,
		now:            func() time.Time { return time.Now().UTC() },
		cleanupTimeout: defaultCleanupTimeout,
	}
	g.handlers = map[models.EventType]eventHandler{
		models.EventCreateRoom:     g.handleCreateRoom,
		models.EventJoinRoom:       g.handleJoinRoom,
		models.EventSendMessage:    g.handleSendMessage,
		models.EventEndRoom:        g.handleEndRoom,
		models.EventKickUser:       g.handleKickUser,
		models.EventTyping:         g.handleTyping,
		models.EventLeaveRoom:      g.handleLeaveRoom,
		models.EventGetRooms:       g.handleGetRooms,
		models.EventGetRoomDetails: g.handleGetRoomDetails,
	}
	return g
}

// Connect registers a freshly upgraded connection.
func (g *Gateway) Connect(c *Client) {
	g.hub.Register(c)
}

// Dispatch handles one inbound frame. Any failure is reported to the sender
// as a single room-error event.
func (g *Gateway) Dispatch(ctx context.Context, c *Client, raw []byte) {
	var envelope models.Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Event == "" {
		g.reject(c, "", &rejection{message: "Malformed message"})
		return
	}

	handler, ok := g.handlers[envelope.Event]
	if !ok {
		g.reject(c, envelope.Event, &rejection{message: "Unknown event"})
		return
	}

	if err := handler(ctx, c, envelope.Data); err != nil {
		g.reject(c, envelope.Event, err)
	}
}

// Disconnect cleans up after a closed connection. It is safe to call more
// than once. When the identity has moved to a newer connection only the rooms
// still grouped under this connection are left.
func (g *Gateway) Disconnect(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), g.cleanupTimeout)
	defer cancel()

	identity := c.Identity()
	current := identity != "" && g.registry.Release(identity, c)

	if identity != "" {
		roomIDs := g.hub.RoomsOf(c.ID)
		if current {
			roomIDs = lo.Union(g.rooms.RoomsFor(identity), roomIDs)
		}
		g.leaveRooms(ctx, c, identity, roomIDs, current, true)
	}

	g.hub.Unregister(c)

	if current {
		if err := g.users.MarkOffline(ctx, identity); err != nil {
			logger.Error("Failed to mark %s offline: %v", identity, err)
		}
	}
	logger.Info("Connection %s closed (identity %q)", c.ID, identity)
}

func (g *Gateway) handleCreateRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var req models.CreateRoomRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	room, err := g.rooms.CreateRoom(ctx, services.CreateRoomParams{
		Name:         req.RoomName,
		Topic:        req.Topic,
		CreatorName:  req.CreatedBy,
		CreatorID:    req.UserID,
		ConnectionID: c.ID,
		IsPrivate:    req.IsPrivate,
	})
	if err != nil {
		return refuse(err, "Failed to create room", "Failed to create room")
	}

	g.bind(ctx, req.UserID, c)
	g.hub.Join(room.RoomID, c)

	g.send(c, models.EventRoomCreated, models.RoomCreatedEvent{RoomID: room.RoomID, Room: room})
	if !room.IsPrivate {
		g.hub.BroadcastAll(encode(models.EventNewRoomAvailable, room.Summary()), c.ID)
	}

	g.recordJoin(ctx, req.UserID, req.CreatedBy, room.RoomID)
	logger.Info("Room %s (%s) created by %s", room.RoomID, room.Name, req.UserID)
	return nil
}

func (g *Gateway) handleJoinRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var req models.JoinRoomRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	result, err := g.rooms.JoinRoom(ctx, req.RoomID, req.UserID, req.Username, c.ID)
	if err != nil {
		return refuse(err, "Room not found or inactive", "Failed to join room")
	}
	room := result.Room

	g.bind(ctx, req.UserID, c)
	if prev := result.PreviousConnectionID; prev != "" && prev != c.ID {
		g.hub.Leave(room.RoomID, prev)
	}
	g.hub.Join(room.RoomID, c)

	// An end-room racing this join may have dissolved the group before the
	// join above. Its state change is persisted before the dissolve, so a
	// fresh read settles it.
	if _, err := g.rooms.GetRoomByID(ctx, room.RoomID); err != nil {
		g.hub.Leave(room.RoomID, c.ID)
		return refuse(err, "Room not found or inactive", "Failed to join room")
	}

	g.send(c, models.EventRoomJoined, models.RoomEvent{Room: room})
	g.hub.BroadcastRoom(room.RoomID, encode(models.EventUserJoined, models.UserPresenceEvent{
		Username:  req.Username,
		UserID:    req.UserID,
		Timestamp: g.now(),
	}), c.ID)
	g.broadcastMemberCount(room)

	g.recordJoin(ctx, req.UserID, req.Username, room.RoomID)
	logger.Info("%s joined room %s (rejoin=%t)", req.UserID, room.RoomID, result.Rejoined)
	return nil
}

func (g *Gateway) handleSendMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var req models.SendMessageRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	identity, err := g.requireGroup(c, req.RoomID)
	if err != nil {
		return err
	}

	room, err := g.rooms.AddMessage(ctx, req.RoomID, models.Message{
		Text:     req.Message,
		Username: req.Username,
		UserID:   identity,
	})
	if err != nil {
		return refuse(err, "Room not available", "Failed to send message")
	}

	message := room.Messages[len(room.Messages)-1]
	g.hub.BroadcastRoom(room.RoomID, encode(models.EventNewMessage, message), "")
	return nil
}

func (g *Gateway) handleEndRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var req models.RoomRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	identity, ok := g.registry.ResolveIdentity(c)
	if !ok {
		return &rejection{message: "Room not found or unauthorized"}
	}

	room, err := g.rooms.EndRoom(ctx, req.RoomID, identity)
	if err != nil {
		return refuse(err, "Room not found or unauthorized", "Failed to end room")
	}

	g.hub.BroadcastRoom(room.RoomID, encode(models.EventRoomEnded, models.RoomEndedEvent{
		Message:   fmt.Sprintf("Room %q has been ended by the creator", room.Name),
		EndedBy:   room.CreatedBy,
		Timestamp: g.now(),
	}), "")
	g.hub.Dissolve(room.RoomID)

	for _, member := range room.Members {
		g.recordLeave(ctx, member.UserID, room.RoomID)
	}
	logger.Info("Room %s ended by %s", room.RoomID, identity)
	return nil
}

func (g *Gateway) handleKickUser(ctx context.Context, c *Client, data json.RawMessage) error {
	var req models.KickUserRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	identity, ok := g.registry.ResolveIdentity(c)
	if !ok {
		return &rejection{message: "Unauthorized or room not found"}
	}

	room, kicked, err := g.rooms.KickUser(ctx, req.RoomID, identity, req.TargetUserID)
	if err != nil {
		return refuse(err, "Unauthorized or room not found", "Failed to kick user")
	}
	if !kicked {
		return nil
	}

	target := room.Members[room.FindMember(req.TargetUserID)]
	now := g.now()

	if conn, ok := g.hub.Client(target.ConnectionID); ok {
		g.hub.Leave(room.RoomID, conn.ID)
		g.send(conn, models.EventKickedFromRoom, models.KickedFromRoomEvent{
			RoomName:  room.Name,
			KickedBy:  room.CreatedBy,
			Timestamp: now,
		})
	}
	g.hub.BroadcastRoom(room.RoomID, encode(models.EventUserKicked, models.UserKickedEvent{
		Username:  target.Username,
		KickedBy:  room.CreatedBy,
		Timestamp: now,
	}), "")

	g.recordLeave(ctx, target.UserID, room.RoomID)
	logger.Info("%s kicked from room %s", target.UserID, room.RoomID)
	return nil
}

func (g *Gateway) handleTyping(_ context.Context, c *Client, data json.RawMessage) error {
	var req models.TypingRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	if _, err := g.requireGroup(c, req.RoomID); err != nil {
		return err
	}

	g.hub.BroadcastRoom(req.RoomID, encode(models.EventUserTyping, models.UserTypingEvent{
		Username: req.Username,
		IsTyping: req.IsTyping,
	}), c.ID)
	return nil
}

func (g *Gateway) handleLeaveRoom(ctx context.Context, c *Client, _ json.RawMessage) error {
	identity, ok := g.registry.ResolveIdentity(c)
	if !ok {
		return &rejection{message: "You are not in any room"}
	}

	roomIDs := lo.Union(g.rooms.RoomsFor(identity), g.hub.RoomsOf(c.ID))
	g.leaveRooms(ctx, c, identity, roomIDs, true, false)
	return nil
}

func (g *Gateway) handleGetRooms(ctx context.Context, c *Client, _ json.RawMessage) error {
	rooms, err := g.rooms.GetPublicRooms(ctx)
	if err != nil {
		logger.Error("Failed to list rooms for %s: %v", c.ID, err)
		rooms = []models.RoomSummary{}
	}

	g.send(c, models.EventRoomsList, rooms)
	return nil
}

func (g *Gateway) handleGetRoomDetails(ctx context.Context, c *Client, data json.RawMessage) error {
	var req models.RoomRequest
	if err := decode(data, &req); err != nil {
		return err
	}

	identity, ok := g.registry.ResolveIdentity(c)
	if !ok {
		return &rejection{message: "You are not a member of this room"}
	}

	details, err := g.rooms.GetRoomDetails(ctx, req.RoomID, identity)
	switch {
	case errors.Is(err, services.ErrRoomNotFound):
		return &rejection{message: "Room not found"}
	case err != nil:
		return refuse(err, "You are not a member of this room", "Failed to get room details")
	}

	g.send(c, models.EventRoomDetails, models.RoomEvent{Room: details})
	return nil
}

// leaveRooms deactivates identity in each room and drops this connection from
// the room groups. Every room is handled on its own; a failure is logged and
// the rest still run. With everywhere set, the connection recorded on the
// member is dropped from the group as well.
func (g *Gateway) leaveRooms(ctx context.Context, c *Client, identity string, roomIDs []string, everywhere, notify bool) {
	for _, roomID := range roomIDs {
		g.hub.Leave(roomID, c.ID)

		room, changed, err := g.rooms.LeaveRoom(ctx, roomID, identity)
		if err != nil {
			logger.Error("Failed to remove %s from room %s: %v", identity, roomID, err)
			continue
		}

		idx := room.FindMember(identity)
		if idx < 0 {
			continue
		}
		member := room.Members[idx]
		if everywhere && member.ConnectionID != "" {
			g.hub.Leave(roomID, member.ConnectionID)
		}
		if !changed {
			continue
		}

		if notify {
			g.hub.BroadcastRoom(roomID, encode(models.EventUserLeft, models.UserPresenceEvent{
				Username:  member.Username,
				UserID:    identity,
				Timestamp: g.now(),
			}), c.ID)
			g.broadcastMemberCount(room)
		}
		g.recordLeave(ctx, identity, roomID)
	}
}

// requireGroup resolves the caller and checks that its connection is in the
// room's broadcast group.
func (g *Gateway) requireGroup(c *Client, roomID string) (string, error) {
	identity, ok := g.registry.ResolveIdentity(c)
	if !ok {
		return "", &rejection{message: "Join a room first"}
	}
	if !g.hub.InRoom(roomID, c.ID) {
		return "", &rejection{message: "You are not in this room"}
	}
	return identity, nil
}

// bind makes c speak for identity. When c already spoke for another
// identity, that identity first leaves the rooms it holds through c.
func (g *Gateway) bind(ctx context.Context, identity string, c *Client) {
	if former, ok := g.registry.ResolveIdentity(c); ok && former != identity {
		joined := g.rooms.RoomsFor(former)
		roomIDs := lo.Filter(g.hub.RoomsOf(c.ID), func(roomID string, _ int) bool {
			return lo.Contains(joined, roomID)
		})
		g.leaveRooms(ctx, c, former, roomIDs, false, true)
		logger.Info("Connection %s switched identity from %s to %s", c.ID, former, identity)
	}

	if previous := g.registry.Bind(identity, c); previous != nil {
		logger.Info("Identity %s moved from connection %s to %s", identity, previous.ID, c.ID)
	}
}

func (g *Gateway) broadcastMemberCount(room *models.Room) {
	g.hub.BroadcastRoom(room.RoomID, encode(models.EventMemberCountUpdated, models.MemberCountEvent{
		Count: room.ActiveMemberCount(),
	}), "")
}

func (g *Gateway) recordJoin(ctx context.Context, identity, username, roomID string) {
	if err := g.users.RecordJoin(ctx, identity, username, roomID); err != nil {
		logger.Error("Failed to record join of %s in %s: %v", identity, roomID, err)
	}
}

func (g *Gateway) recordLeave(ctx context.Context, identity, roomID string) {
	if err := g.users.RecordLeave(ctx, identity, roomID); err != nil {
		logger.Error("Failed to record leave of %s from %s: %v", identity, roomID, err)
	}
}

func (g *Gateway) send(c *Client, event models.EventType, payload any) {
	if message := encode(event, payload); message != nil {
		c.Send(message)
	}
}

func (g *Gateway) reject(c *Client, event models.EventType, err error) {
	var r *rejection
	if !errors.As(err, &r) {
		r = &rejection{message: "Something went wrong", cause: err}
	}
	if r.cause != nil {
		logger.Error("Event %q from %s failed: %v", event, c.ID, r.cause)
	}
	g.send(c, models.EventRoomError, models.RoomErrorEvent{Message: r.message})
}

// rejection is the client-facing outcome of a failed event. cause is logged,
// never sent.
type rejection struct {
	message string
	cause   error
}

func (r *rejection) Error() string {
	if r.cause != nil {
		return r.message + ": " + r.cause.Error()
	}
	return r.message
}

func (r *rejection) Unwrap() error {
	return r.cause
}

// refuse maps a directory error to a rejection. denied is shown for
// not-found and permission failures, failed for everything unexpected.
func refuse(err error, denied, failed string) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		detail := strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": ")
		return &rejection{message: "Invalid request: " + detail}
	case errors.Is(err, services.ErrRoomNotFound),
		errors.Is(err, services.ErrUnauthorized),
		errors.Is(err, services.ErrNotMember):
		return &rejection{message: denied}
	default:
		return &rejection{message: failed, cause: err}
	}
}

func decode(data json.RawMessage, req any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, req); err != nil {
		return &rejection{message: "Malformed message"}
	}
	if err := services.Validate(req); err != nil {
		return refuse(err, "Invalid request", "Invalid request")
	}
	return nil
}

func encode(event models.EventType, payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to encode %s payload: %v", event, err)
		return nil
	}
	message, err := json.Marshal(models.Envelope{Event: event, Data: data})
	if err != nil {
		logger.Error("Failed to encode %s envelope: %v", event, err)
		return nil
	}
	return message
}
