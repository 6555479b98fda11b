package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collab-rooms/internal/config"
	"collab-rooms/internal/database"
	"collab-rooms/internal/handlers"
	"collab-rooms/internal/models"
	"collab-rooms/internal/services"
	ws "collab-rooms/internal/websocket"
)

type testServer struct {
	*httptest.Server
	rooms *services.RoomService
	hub   *ws.Hub
}

func newTestServer(t *testing.T, allowedOrigins ...string) *testServer {
	t.Helper()
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	store := database.NewMemoryDB()
	rooms := services.NewRoomService(store)
	hub := ws.NewHub()
	gateway := ws.NewGateway(rooms, services.NewUserService(store), ws.NewRegistry(), hub)

	ctx, cancel := context.WithCancel(context.Background())
	cfg := config.WebSocketConfig{AllowedOrigins: allowedOrigins, MaxMessageSize: 16 * 1024, SendBuffer: 16}
	mux := handlers.Routes(handlers.NewRoomHandlers(rooms), handlers.NewWebSocketHandlers(ctx, gateway, cfg))

	server := httptest.NewServer(handlers.CORS(allowedOrigins, mux))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
		cancel()
	})
	return &testServer{Server: server, rooms: rooms, hub: hub}
}

func (s *testServer) dial(t *testing.T, header http.Header) *websocket.Conn {
	t.Helper()
	url := fmt.Sprintf("ws://%s/ws", strings.TrimPrefix(s.URL, "http://"))
	socket, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { socket.Close() })
	return socket
}

func send(t *testing.T, socket *websocket.Conn, event models.EventType, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, socket.WriteJSON(models.Envelope{Event: event, Data: data}))
}

// await reads frames until one carries event, skipping the rest.
func await(t *testing.T, socket *websocket.Conn, event models.EventType) models.Envelope {
	t.Helper()
	require.NoError(t, socket.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var envelope models.Envelope
		require.NoError(t, socket.ReadJSON(&envelope), "waiting for %s", event)
		if envelope.Event == event {
			return envelope
		}
	}
}

func decodeData[T any](t *testing.T, envelope models.Envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(envelope.Data, &out))
	return out
}

func createRoom(t *testing.T, rooms *services.RoomService, name string, isPrivate bool) *models.Room {
	t.Helper()
	room, err := rooms.CreateRoom(context.Background(), services.CreateRoomParams{
		Name:        name,
		Topic:       "dp",
		CreatorName: "alice",
		CreatorID:   "u1",
		IsPrivate:   isPrivate,
	})
	require.NoError(t, err)
	return room
}

func TestHealth(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoomHandlers(t *testing.T) {
	server := newTestServer(t)
	public := createRoom(t, server.rooms, "public", false)
	private := createRoom(t, server.rooms, "private", true)

	t.Run("lists public rooms only", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/rooms")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		var summaries []models.RoomSummary
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
		require.Len(t, summaries, 1)
		assert.Equal(t, public.RoomID, summaries[0].ID)
		assert.Equal(t, 1, summaries[0].Members)
	})

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{name: "public room", path: "/rooms/" + public.RoomID, status: http.StatusOK},
		{name: "private room by id", path: "/rooms/" + private.RoomID, status: http.StatusOK},
		{name: "lower case id", path: "/rooms/" + strings.ToLower(public.RoomID), status: http.StatusOK},
		{name: "unknown room", path: "/rooms/ZZZZZZ", status: http.StatusNotFound},
		{name: "nested path", path: "/rooms/" + public.RoomID + "/members", status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(server.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	t.Run("rejects writes", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/rooms", "application/json", strings.NewReader("{}"))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestCORS(t *testing.T) {
	server := newTestServer(t, "http://localhost:3000")

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/rooms", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()

	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	server := newTestServer(t, "http://localhost:3000")
	url := fmt.Sprintf("ws://%s/ws", strings.TrimPrefix(server.URL, "http://"))

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.example"}})

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWebSocket_RoomSession(t *testing.T) {
	// Given
	server := newTestServer(t)
	alice := server.dial(t, nil)
	bob := server.dial(t, http.Header{"Origin": []string{"http://localhost:3000"}})
	for _, socket := range []*websocket.Conn{alice, bob} {
		send(t, socket, models.EventGetRooms, nil)
		await(t, socket, models.EventRoomsList)
	}

	send(t, alice, models.EventCreateRoom, models.CreateRoomRequest{
		RoomName:  "Graphs",
		Topic:     "bfs",
		CreatedBy: "alice",
		UserID:    "u1",
	})
	created := decodeData[models.RoomCreatedEvent](t, await(t, alice, models.EventRoomCreated))
	roomID := created.RoomID
	require.Len(t, roomID, 6)
	await(t, bob, models.EventNewRoomAvailable)

	// When
	send(t, bob, models.EventJoinRoom, models.JoinRoomRequest{RoomID: roomID, Username: "bob", UserID: "u2"})
	await(t, bob, models.EventRoomJoined)
	count := decodeData[models.MemberCountEvent](t, await(t, alice, models.EventMemberCountUpdated))
	assert.Equal(t, 2, count.Count)

	send(t, alice, models.EventSendMessage, models.SendMessageRequest{RoomID: roomID, Message: "hello", Username: "alice"})

	// Then
	message := decodeData[models.Message](t, await(t, bob, models.EventNewMessage))
	assert.Equal(t, "hello", message.Text)
	assert.Equal(t, models.MessageKindText, message.Type)

	require.NoError(t, bob.Close())
	left := decodeData[models.UserPresenceEvent](t, await(t, alice, models.EventUserLeft))
	assert.Equal(t, "u2", left.UserID)

	room, err := server.rooms.GetRoomByID(context.Background(), roomID)
	require.NoError(t, err)
	assert.Equal(t, 1, room.ActiveMemberCount())
}

func TestWebSocket_MalformedFrame(t *testing.T) {
	server := newTestServer(t)
	socket := server.dial(t, nil)

	require.NoError(t, socket.WriteMessage(websocket.TextMessage, []byte("not json")))

	rejected := decodeData[models.RoomErrorEvent](t, await(t, socket, models.EventRoomError))
	assert.Equal(t, "Malformed message", rejected.Message)
}
