package database

import (
	"fmt"

	"collab-rooms/internal/config"
)

// Open returns the store selected by cfg.Driver.
func Open(cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case config.StoreDriverPostgres:
		return NewPostgresDB(cfg.DatabaseURL)
	case config.StoreDriverBadger:
		return NewBadgerDB(cfg.BadgerPath)
	case config.StoreDriverMemory:
		return NewMemoryDB(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
