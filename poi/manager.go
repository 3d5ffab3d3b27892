// Package poi is the single source of truth for the editor's point
// collection. Every change is published to subscribers before it is
// persisted.
package poi

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/stevemurr/poi-editor-server/geojson"
	"github.com/stevemurr/poi-editor-server/metrics"
	"github.com/stevemurr/poi-editor-server/spatial"
	"github.com/stevemurr/poi-editor-server/store"
)

// Defaults applied by AddDefaultPoint.
const (
	DefaultName     = "Nuevo Punto"
	DefaultCategory = "default"
)

var (
	ErrSaveFailed      = errors.New("failed to save collection")
	ErrStaleImport     = errors.New("import superseded by a newer import")
	ErrIndexOutOfRange = errors.New("point index out of range")
	ErrPointNotFound   = errors.New("point not found")
	ErrSessionClosed   = errors.New("edit session closed")
)

// Update carries the fields to change on a point. Nil fields are left alone.
type Update struct {
	Name     *string `json:"name,omitempty"`
	Category *string `json:"category,omitempty"`
}

func (u Update) apply(f geojson.Feature) geojson.Feature {
	f = f.Clone()
	if u.Name != nil {
		f.Properties[geojson.PropName] = *u.Name
	}
	if u.Category != nil {
		f.Properties[geojson.PropCategory] = *u.Category
	}
	return f
}

type Option func(*Manager)

func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMatcher sets the matcher used by ResolveClick.
func WithMatcher(sm spatial.Matcher) Option {
	return func(m *Manager) { m.matcher = sm }
}

// WithIDGenerator replaces the UUID generator used for new point ids.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

// Manager owns the collection. Mutations are serialized; reads go through
// the feed and never block on a mutation in progress.
type Manager struct {
	mu        sync.Mutex
	store     store.Store
	feed      *Feed
	matcher   spatial.Matcher
	logger    zerolog.Logger
	newID     func() string
	importGen uint64
}

// NewManager creates a manager backed by s and loads any stored collection.
func NewManager(ctx context.Context, s store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:   s,
		feed:    NewFeed(geojson.Empty()),
		matcher: spatial.NewMatcher(),
		logger:  log.Logger,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.LoadFromStore(ctx)
	return m
}

// GetData returns a copy of the current collection.
func (m *Manager) GetData() geojson.Collection {
	return m.feed.Value()
}

func (m *Manager) GetPointCount() int {
	return m.feed.peek().Len()
}

// Subscribe registers fn for change notifications. fn is called once
// immediately with the current collection. fn must not mutate the manager.
func (m *Manager) Subscribe(fn Subscriber) (unsubscribe func()) {
	return m.feed.Subscribe(fn)
}

// LoadFromStore replaces the collection with the stored one. It reports
// false when nothing is stored or the stored data cannot be read.
func (m *Manager) LoadFromStore(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("could not load stored collection")
		return false
	}
	if stored == nil {
		return false
	}

	features, assigned := m.withIDs(stored.Features)
	c := geojson.NewCollection(features)
	m.feed.Publish(c)
	metrics.Points.Set(float64(c.Len()))
	m.logger.Debug().Int("points", c.Len()).Int("new_ids", assigned).Msg("loaded stored collection")

	// new ids must survive a restart
	if assigned > 0 {
		if err := m.store.Save(ctx, c); err != nil {
			metrics.SaveFailuresTotal.Inc()
			m.logger.Warn().Err(err).Msg("could not save assigned point ids")
		}
	}
	return true
}

// ImportGeoJSON validates raw and replaces the collection with the accepted
// features. The collection is left untouched when nothing is accepted.
func (m *Manager) ImportGeoJSON(ctx context.Context, raw any) (geojson.Report, error) {
	return m.BeginImport().Apply(ctx, raw)
}

func (m *Manager) importLocked(ctx context.Context, raw any) (geojson.Report, error) {
	report := geojson.Validate(raw)
	observeReport(report)

	if len(report.Accepted) == 0 {
		metrics.ImportsTotal.WithLabelValues("empty").Inc()
		return report, nil
	}
	metrics.ImportsTotal.WithLabelValues("applied").Inc()

	features, _ := m.withIDs(report.Accepted)
	err := m.commit(ctx, "import", geojson.NewCollection(features))
	return report, err
}

// AddDefaultPoint appends a point named DefaultName in DefaultCategory.
func (m *Manager) AddDefaultPoint(ctx context.Context, lon, lat float64) (geojson.Feature, error) {
	return m.AddPoint(ctx, lon, lat, DefaultName, DefaultCategory)
}

// AddPoint appends a new point with the given name and category, empty
// strings included. No coordinate range checks are made.
func (m *Manager) AddPoint(ctx context.Context, lon, lat float64, name, category string) (geojson.Feature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f := geojson.CreateFeature(lon, lat, name, category, m.newID())

	cur := m.feed.peek()
	next := append(slices.Clone(cur.Features), f)
	return f.Clone(), m.commit(ctx, "add", geojson.NewCollection(next))
}

// UpdatePoint changes name and/or category of the point at index. An
// out-of-range index is a no-op.
func (m *Manager) UpdatePoint(ctx context.Context, index int, u Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(ctx, index, u)
}

func (m *Manager) updateLocked(ctx context.Context, index int, u Update) error {
	cur := m.feed.peek()
	if index < 0 || index >= cur.Len() {
		return nil
	}
	next := slices.Clone(cur.Features)
	next[index] = u.apply(next[index])
	return m.commit(ctx, "update", geojson.NewCollection(next))
}

// DeletePoint removes the point at index. An out-of-range index is a no-op.
func (m *Manager) DeletePoint(ctx context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(ctx, index)
}

func (m *Manager) deleteLocked(ctx context.Context, index int) error {
	cur := m.feed.peek()
	if index < 0 || index >= cur.Len() {
		return nil
	}
	next := slices.Delete(slices.Clone(cur.Features), index, index+1)
	return m.commit(ctx, "delete", geojson.NewCollection(next))
}

// IndexOf returns the position of the point with the given id, or -1.
func (m *Manager) IndexOf(id string) int {
	if id == "" {
		return -1
	}
	_, idx, ok := lo.FindIndexOf(m.feed.peek().Features, func(f geojson.Feature) bool {
		return f.ID() == id
	})
	if !ok {
		return -1
	}
	return idx
}

// UpdatePointByID is UpdatePoint addressed by id. It reports whether the
// point exists.
func (m *Manager) UpdatePointByID(ctx context.Context, id string, u Update) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.IndexOf(id)
	if idx < 0 {
		return false, nil
	}
	return true, m.updateLocked(ctx, idx, u)
}

// DeletePointByID is DeletePoint addressed by id. It reports whether the
// point existed.
func (m *Manager) DeletePointByID(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.IndexOf(id)
	if idx < 0 {
		return false, nil
	}
	return true, m.deleteLocked(ctx, idx)
}

// Clear empties the collection and the store. Store errors are logged.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("could not clear store")
	}
	m.feed.Publish(geojson.Empty())
	metrics.MutationsTotal.WithLabelValues("clear").Inc()
	metrics.Points.Set(0)
}

// ResolveClick finds the point a clicked map feature was drawn from. A
// matching id property wins; otherwise the spatial matcher is used. A
// non-nil multiplier overrides the manager's matcher setting.
func (m *Manager) ResolveClick(click spatial.Click, view *spatial.View, multiplier *float64) (int, bool) {
	if id, ok := click.Properties[geojson.PropID]; ok {
		f := geojson.Feature{Properties: geojson.Properties{geojson.PropID: id}}
		if idx := m.IndexOf(f.ID()); idx >= 0 {
			return idx, true
		}
	}

	sm := m.matcher
	if multiplier != nil {
		sm.Multiplier = *multiplier
	}
	return sm.Resolve(click, view, m.feed.peek().Features)
}

// commit publishes next and then persists it. Callers hold m.mu.
func (m *Manager) commit(ctx context.Context, op string, next geojson.Collection) error {
	m.feed.Publish(next)
	metrics.MutationsTotal.WithLabelValues(op).Inc()
	metrics.Points.Set(float64(next.Len()))

	if err := m.store.Save(ctx, next); err != nil {
		metrics.SaveFailuresTotal.Inc()
		m.logger.Error().Err(err).Str("op", op).Msg("failed to persist collection")
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

// withIDs returns copies of features where every point has a unique id,
// and how many ids it had to assign. Missing and duplicate ids are replaced.
func (m *Manager) withIDs(features []geojson.Feature) ([]geojson.Feature, int) {
	seen := make(map[string]struct{}, len(features))
	assigned := 0
	out := lo.Map(features, func(f geojson.Feature, _ int) geojson.Feature {
		f = f.Clone()
		id := f.ID()
		if _, dup := seen[id]; id == "" || dup {
			id = m.newID()
			f.Properties[geojson.PropID] = id
			assigned++
		}
		seen[id] = struct{}{}
		return f
	})
	return out, assigned
}

func observeReport(r geojson.Report) {
	metrics.ImportedFeaturesTotal.WithLabelValues(geojson.Accepted.String()).Add(float64(len(r.Accepted)))
	metrics.ImportedFeaturesTotal.WithLabelValues(geojson.InvalidCoordinates.String()).Add(float64(r.Errors.InvalidCoordinates))
	metrics.ImportedFeaturesTotal.WithLabelValues(geojson.InvalidGeometry.String()).Add(float64(r.Errors.InvalidGeometry))
	metrics.ImportedFeaturesTotal.WithLabelValues(geojson.MissingProperties.String()).Add(float64(r.Errors.MissingProperties))
	metrics.ImportedFeaturesTotal.WithLabelValues(geojson.Other.String()).Add(float64(r.Errors.Other))
}
