package handlers

import (
	"net/http"
	"strings"

	"github.com/samber/lo"
)

// Routes wires the HTTP surface: the socket endpoint, the read-only room
// listing and a health probe.
func Routes(roomHandlers *RoomHandlers, wsHandlers *WebSocketHandlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", Health)

	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		roomHandlers.ListRooms(w, r)
	})

	mux.HandleFunc("/rooms/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		roomHandlers.GetRoom(w, r)
	})

	// WebSocket route
	mux.HandleFunc("/ws", wsHandlers.HandleWebSocket)

	return mux
}

// CORS answers preflight requests and echoes allowed origins.
func CORS(allowed []string, next http.Handler) http.Handler {
	wildcard := lo.Contains(allowed, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case wildcard:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && lo.Contains(allowed, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", strings.Join([]string{http.MethodGet, http.MethodOptions}, ", "))
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
