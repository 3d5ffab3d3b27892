package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"

	"github.com/stevemurr/poi-editor-server/geojson"
)

// statements holds the dialect-specific SQL for a state table keyed by
// StateKey.
type statements struct {
	upsert string
	get    string
	delete string
	exists string
}

// sqlStore implements Store on top of database/sql. SqliteStore and
// PostgresStore differ only in driver, DDL and placeholders.
type sqlStore struct {
	mu   sync.RWMutex
	db   *sql.DB
	stmt statements
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) Save(ctx context.Context, c geojson.Collection) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, s.stmt.upsert, StateKey, string(b))
	return err
}

func (s *sqlStore) Load(ctx context.Context) (*geojson.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var raw []byte
	err := s.db.QueryRowContext(ctx, s.stmt.get, StateKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var c geojson.Collection
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *sqlStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, s.stmt.delete, StateKey)
	return err
}

func (s *sqlStore) HasData(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int
	if err := s.db.QueryRowContext(ctx, s.stmt.exists, StateKey).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
