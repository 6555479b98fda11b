package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"collab-rooms/internal/models"
	"collab-rooms/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	room_id    TEXT PRIMARY KEY,
	is_private BOOLEAN NOT NULL,
	is_active  BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	doc        JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS rooms_public_active_idx ON rooms (created_at) WHERE is_active AND NOT is_private;
CREATE TABLE IF NOT EXISTS users (
	user_id TEXT PRIMARY KEY,
	doc     JSONB NOT NULL
);`

// PostgresDB stores room and user documents as JSONB. The flag columns
// mirror fields of the document so listings can be filtered in SQL.
type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(context.Background(), schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

func (db *PostgresDB) Pool() *pgxpool.Pool {
	return db.pool
}

// Room Repository Implementation
func (db *PostgresDB) InsertRoom(ctx context.Context, room *models.Room) error {
	doc, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to encode room: %w", err)
	}

	query := `
		INSERT INTO rooms (room_id, is_private, is_active, created_at, doc)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = db.pool.Exec(ctx, query, room.RoomID, room.IsPrivate, room.IsActive, room.CreatedAt, doc)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert room: %w", err)
	}
	return nil
}

func (db *PostgresDB) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	query := `SELECT doc FROM rooms WHERE room_id = $1`

	var doc []byte
	if err := db.pool.QueryRow(ctx, query, roomID).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRecord
		}
		return nil, err
	}

	room := &models.Room{}
	if err := json.Unmarshal(doc, room); err != nil {
		return nil, fmt.Errorf("failed to decode room %s: %w", roomID, err)
	}
	return room, nil
}

func (db *PostgresDB) UpdateRoom(ctx context.Context, room *models.Room) error {
	doc, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to encode room: %w", err)
	}

	query := `UPDATE rooms SET is_active = $2, doc = $3 WHERE room_id = $1`

	tag, err := db.pool.Exec(ctx, query, room.RoomID, room.IsActive, doc)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRecord
	}
	return nil
}

func (db *PostgresDB) ListPublicActiveRooms(ctx context.Context) ([]*models.Room, error) {
	return db.queryRooms(ctx, `
		SELECT doc FROM rooms
		WHERE is_active AND NOT is_private
		ORDER BY created_at`)
}

func (db *PostgresDB) ListActiveRooms(ctx context.Context) ([]*models.Room, error) {
	return db.queryRooms(ctx, `
		SELECT doc FROM rooms
		WHERE is_active
		ORDER BY created_at`)
}

func (db *PostgresDB) queryRooms(ctx context.Context, query string) ([]*models.Room, error) {
	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		room := &models.Room{}
		if err := json.Unmarshal(doc, room); err != nil {
			return nil, fmt.Errorf("failed to decode room: %w", err)
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

// User Repository Implementation
func (db *PostgresDB) GetUser(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT doc FROM users WHERE user_id = $1`

	var doc []byte
	if err := db.pool.QueryRow(ctx, query, userID).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRecord
		}
		return nil, err
	}

	user := &models.User{}
	if err := json.Unmarshal(doc, user); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", userID, err)
	}
	return user, nil
}

func (db *PostgresDB) UpsertUser(ctx context.Context, user *models.User) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	query := `
		INSERT INTO users (user_id, doc) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET doc = EXCLUDED.doc`

	if _, err := db.pool.Exec(ctx, query, user.UserID, doc); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}
