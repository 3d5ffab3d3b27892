// Package store defines the persistence port for the POI collection and its
// backing implementations.
package store

import (
	"context"
	"errors"

	"github.com/stevemurr/poi-editor-server/geojson"
)

// StateKey names the stored collection in keyed backends (file name, row
// key, redis key).
const StateKey = "poi_editor_state"

var ErrUnknownBackend = errors.New("unknown store backend")

// Store is the interface that all backing stores must implement. It holds a
// single point collection.
type Store interface {
	// Save replaces the stored collection.
	Save(ctx context.Context, c geojson.Collection) error

	// Load returns the stored collection, or nil if nothing is stored.
	// Unreadable data is reported as an error.
	Load(ctx context.Context) (*geojson.Collection, error)

	// Clear removes the stored collection. Clearing an empty store is not an error.
	Clear(ctx context.Context) error

	// HasData reports whether a collection is stored.
	HasData(ctx context.Context) (bool, error)
}
