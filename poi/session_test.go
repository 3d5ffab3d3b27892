package poi_test

import (
	"context"
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/stevemurr/poi-editor-server/geojson"
	"github.com/stevemurr/poi-editor-server/poi"
)

func TestEditSessionSave(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	m, _ := seeded(t,
		geojson.CreateFeature(1, 1, "a", "x", "a"),
		geojson.CreateFeature(2, 2, "b", "y", "b"),
	)

	s, err := m.BeginEdit(1)
	is.NoErr(err)
	is.Equal(s.ID, "b")
	is.Equal(s.Name, "b")
	is.Equal(s.Category, "y")

	// the point moves while the session is open
	is.NoErr(m.DeletePoint(ctx, 0))
	is.Equal(s.CurrentIndex(), 0)

	s.Name = "bee"
	is.NoErr(s.Save(ctx))

	data := m.GetData()
	is.Equal(data.Len(), 1)
	is.Equal(data.Features[0].Name(), "bee")
	is.Equal(data.Features[0].Category(), "y")

	is.True(errors.Is(s.Save(ctx), poi.ErrSessionClosed))
}

func TestEditSessionPointDeleted(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	m, _ := seeded(t,
		geojson.CreateFeature(1, 1, "a", "x", "a"),
		geojson.CreateFeature(2, 2, "b", "y", "b"),
	)

	s, err := m.BeginEdit(0)
	is.NoErr(err)
	is.NoErr(m.DeletePoint(ctx, 0))

	is.True(errors.Is(s.Save(ctx), poi.ErrPointNotFound))
	// the remaining point was not touched
	is.Equal(m.GetData().Features[0].Name(), "b")
}

func TestEditSessionDeleteAndCancel(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	m, _ := seeded(t,
		geojson.CreateFeature(1, 1, "a", "x", "a"),
		geojson.CreateFeature(2, 2, "b", "y", "b"),
	)

	s, err := m.BeginEdit(1)
	is.NoErr(err)
	is.NoErr(s.Delete(ctx))
	is.Equal(m.GetPointCount(), 1)
	is.Equal(m.IndexOf("b"), -1)

	c, err := m.BeginEdit(0)
	is.NoErr(err)
	c.Name = "ignored"
	c.Cancel()
	is.True(errors.Is(c.Save(ctx), poi.ErrSessionClosed))
	is.Equal(m.GetData().Features[0].Name(), "a")
}

func TestBeginEditOutOfRange(t *testing.T) {
	is := is.New(t)
	m, _ := seeded(t)
	_, err := m.BeginEdit(0)
	is.True(errors.Is(err, poi.ErrIndexOutOfRange))
}
