// Package storage provides storage implementations for log records.
package storage

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/poslog/poslog/internal/storage/clickhouse"
	"github.com/poslog/poslog/internal/storage/memory"
	"github.com/poslog/poslog/internal/storage/sqlite"
)

// Config holds storage configuration.
type Config struct {
	// Backend selects the storage backend: "sqlite", "memory" or
	// "clickhouse".
	Backend string

	// SQLite-specific config
	DBPath string

	// ClickHouse-specific config
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string
}

// DefaultConfig returns default storage configuration.
func DefaultConfig() Config {
	return Config{
		Backend:            "sqlite",
		DBPath:             "./data/logs.db",
		ClickHouseAddr:     "localhost:9000",
		ClickHouseDatabase: "default",
		ClickHouseUsername: "default",
	}
}

// NewStorage creates a storage implementation based on configuration.
func NewStorage(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Backend {
	case "sqlite":
		log.Printf("Using SQLite storage: %s", cfg.DBPath)
		store, err := sqlite.New(sqlite.Config{DBPath: cfg.DBPath})
		if err != nil {
			return nil, fmt.Errorf("creating SQLite store: %w", err)
		}
		return store, nil

	case "memory":
		log.Printf("Using in-memory storage")
		return memory.New(), nil

	case "clickhouse":
		log.Printf("Using ClickHouse storage: %s", cfg.ClickHouseAddr)

		chCfg := clickhouse.DefaultConfig()
		chCfg.Addr = cfg.ClickHouseAddr
		chCfg.Database = cfg.ClickHouseDatabase
		chCfg.Username = cfg.ClickHouseUsername
		chCfg.Password = cfg.ClickHousePassword

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		store, err := clickhouse.NewStore(ctx, chCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("creating ClickHouse store: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: sqlite, memory, clickhouse)", cfg.Backend)
	}
}
