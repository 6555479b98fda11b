package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"collab-rooms/internal/config"
	"collab-rooms/internal/database"
	"collab-rooms/internal/handlers"
	"collab-rooms/internal/services"
	"collab-rooms/internal/websocket"
	"collab-rooms/pkg/logger"

	gfshutdown "github.com/gelmium/graceful-shutdown"
)

func main() {
	// Load configuration
	cfg := config.Load()

	appLogger, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		logger.Fatal("Invalid log configuration: %v", err)
	}
	logger.SetGlobal(appLogger)

	// Initialize store
	store, err := database.Open(cfg.Store)
	if err != nil {
		logger.Fatal("Failed to open %s store: %v", cfg.Store.Driver, err)
	}

	// Initialize services
	roomService := services.NewRoomService(store)
	released, err := roomService.ReleaseStaleMembers(context.Background())
	if err != nil {
		logger.Fatal("Failed to release members left over from the last run: %v", err)
	}
	if released > 0 {
		logger.Info("Released %d members left over from the last run", released)
	}
	userService := services.NewUserService(store)

	// Initialize WebSocket gateway
	hub := websocket.NewHub()
	registry := websocket.NewRegistry()
	gateway := websocket.NewGateway(roomService, userService, registry, hub)

	sessionCtx, cancelSessions := context.WithCancel(context.Background())

	// Initialize handlers
	roomHandlers := handlers.NewRoomHandlers(roomService)
	wsHandlers := handlers.NewWebSocketHandlers(sessionCtx, gateway, cfg.WebSocket)
	mux := handlers.Routes(roomHandlers, wsHandlers)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      handlers.CORS(cfg.WebSocket.AllowedOrigins, mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("Server started on http://localhost%s (store: %s)", cfg.Server.Port, cfg.Store.Driver)
	logger.Info("WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)
	logger.Info("API endpoints: GET /rooms, GET /rooms/{id}, GET /health")

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server error: %v", err)
		}
	}()

	// Wait for SIGINT/SIGTERM, then stop accepting, drop live sessions and
	// close the store in that order.
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"collab-rooms": func(ctx context.Context) error {
				logger.Info("Server shutting down...")
				shutdownErr := server.Shutdown(ctx)
				hub.Close()
				cancelSessions()
				return errors.Join(shutdownErr, store.Close())
			},
		},
	)

	exitCode := <-wait
	logger.Info("Server exited with code %d", exitCode)
	logger.GlobalLogger.Sync()
	os.Exit(exitCode)
}
