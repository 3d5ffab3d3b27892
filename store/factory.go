package store

import (
	"fmt"
	"path/filepath"
)

// Config selects and configures a backend.
type Config struct {
	Backend       string
	DataDir       string
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New creates a Store based on the backend name.
//
// Supported backends:
//
//	"json"     - JSON file in DataDir (default)
//	"sqlite"   - SQLite database at DataDir/poi.db
//	"memory"   - In-memory (ephemeral, for testing)
//	"postgres" - PostgreSQL reached through PostgresDSN
//	"redis"    - Redis at RedisAddr
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "json", "":
		return NewJsonFileStore(cfg.DataDir)
	case "sqlite":
		return NewSqliteStore(filepath.Join(cfg.DataDir, "poi.db"))
	case "memory":
		return NewMemoryStore(), nil
	case "postgres":
		return NewPostgresStore(cfg.PostgresDSN)
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: json, sqlite, memory, postgres, redis)", ErrUnknownBackend, cfg.Backend)
	}
}
