package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"collab-rooms/internal/services"
	"collab-rooms/pkg/logger"
)

type RoomHandlers struct {
	roomService *services.RoomService
}

func NewRoomHandlers(roomService *services.RoomService) *RoomHandlers {
	return &RoomHandlers{
		roomService: roomService,
	}
}

// ListRooms serves the public room listing.
func (h *RoomHandlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomService.GetPublicRooms(r.Context())
	if err != nil {
		logger.Error("List rooms error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, rooms)
}

// GetRoom serves the summary of one active room. Private rooms are visible
// to anyone holding their id.
func (h *RoomHandlers) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/rooms/"))
	if roomID == "" || strings.Contains(roomID, "/") {
		http.Error(w, "invalid room ID", http.StatusBadRequest)
		return
	}

	room, err := h.roomService.GetRoomByID(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		logger.Error("Get room error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, room.Summary())
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Encode response error: %v", err)
	}
}
