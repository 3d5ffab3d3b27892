package poi

import (
	"context"

	"github.com/stevemurr/poi-editor-server/geojson"
	"github.com/stevemurr/poi-editor-server/metrics"
)

// ImportTicket sequences imports. Only the most recently issued ticket may
// apply; older tickets fail with ErrStaleImport and leave the collection
// alone.
type ImportTicket struct {
	m   *Manager
	gen uint64
}

// BeginImport issues a ticket and invalidates all earlier ones.
func (m *Manager) BeginImport() ImportTicket {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.importGen++
	return ImportTicket{m: m, gen: m.importGen}
}

// Apply validates raw and commits the accepted features.
func (t ImportTicket) Apply(ctx context.Context, raw any) (geojson.Report, error) {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()

	if t.gen != t.m.importGen {
		metrics.ImportsTotal.WithLabelValues("stale").Inc()
		return geojson.Report{}, ErrStaleImport
	}
	return t.m.importLocked(ctx, raw)
}

// ApplyBytes decodes data as JSON and applies it. Undecodable data fails
// with geojson.ErrInvalidJSON without touching the collection.
func (t ImportTicket) ApplyBytes(ctx context.Context, data []byte) (geojson.Report, error) {
	raw, err := geojson.Decode(data)
	if err != nil {
		metrics.ImportsTotal.WithLabelValues("invalid_json").Inc()
		return geojson.Report{}, err
	}
	return t.Apply(ctx, raw)
}
