package store

import (
	"database/sql"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStore stores the collection in a remote PostgreSQL database as
// JSONB.
type PostgresStore struct {
	*sqlStore
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS poi_state (
		key TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresStore{&sqlStore{
		db: db,
		stmt: statements{
			upsert: `INSERT INTO poi_state (key, data) VALUES ($1, $2::jsonb)
				ON CONFLICT (key) DO UPDATE SET data = excluded.data, updated_at = now()`,
			get:    "SELECT data FROM poi_state WHERE key = $1",
			delete: "DELETE FROM poi_state WHERE key = $1",
			exists: "SELECT COUNT(*) FROM poi_state WHERE key = $1",
		},
	}}, nil
}
