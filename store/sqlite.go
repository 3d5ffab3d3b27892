package store

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SqliteStore stores the collection in a local SQLite database.
//
// Tables:
//
//	poi_state(key, data, updated_at)  PRIMARY KEY (key)
type SqliteStore struct {
	*sqlStore
}

func NewSqliteStore(dbPath string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS poi_state (
		key TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SqliteStore{&sqlStore{
		db: db,
		stmt: statements{
			upsert: `INSERT INTO poi_state (key, data) VALUES (?, ?)
				ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
			get:    "SELECT data FROM poi_state WHERE key = ?",
			delete: "DELETE FROM poi_state WHERE key = ?",
			exists: "SELECT COUNT(*) FROM poi_state WHERE key = ?",
		},
	}}, nil
}
