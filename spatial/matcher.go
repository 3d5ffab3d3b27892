// Package spatial maps a clicked, rendered map feature back to the index of
// the point it was drawn from.
//
// The renderer reports rounded, projected coordinates and the feature's name,
// so the lookup searches for the first point with the same name inside a
// tolerance window. The window narrows as the zoom level increases and its
// longitude side widens towards the poles.
package spatial

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/stevemurr/poi-editor-server/geojson"
)

const (
	DefaultMultiplier = 2.0

	baseTolerance     = 0.01
	fallbackTolerance = 0.00001
	minTolerance      = 0.0000001
	maxTolerance      = 0.2
)

// NotFound is the index returned when no point matches.
const NotFound = -1

// View is the map context at the time of the click.
type View struct {
	Zoom           float64 `json:"zoom"`
	CenterLatitude float64 `json:"centerLatitude"`
}

// Tolerance is the matching window, in degrees, on each axis.
type Tolerance struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// ToleranceFor computes the window for a view. Without a view the window
// falls back to a small fixed constant scaled by the multiplier. The
// multiplier is used as given, so zero shrinks a view window to the minimum.
func ToleranceFor(view *View, multiplier float64) Tolerance {
	if view == nil {
		t := fallbackTolerance * multiplier
		return Tolerance{Lng: t, Lat: t}
	}

	lat := baseTolerance / math.Pow(2, view.Zoom)
	lng := lat / math.Cos(view.CenterLatitude*math.Pi/180)

	return Tolerance{
		Lng: clamp(lng * multiplier),
		Lat: clamp(lat * multiplier),
	}
}

// clamp maps NaN to the upper bound.
func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return maxTolerance
	}
	return math.Max(minTolerance, math.Min(maxTolerance, v))
}

// Contains reports whether p lies strictly inside the window around center.
func (t Tolerance) Contains(center, p orb.Point) bool {
	return math.Abs(p.Lon()-center.Lon()) < t.Lng &&
		math.Abs(p.Lat()-center.Lat()) < t.Lat
}

// Click is the payload the renderer reports for a clicked feature.
type Click struct {
	Coordinates orb.Point          `json:"coordinates"`
	Properties  geojson.Properties `json:"properties"`
}

func (c Click) Name() string {
	s, _ := c.Properties[geojson.PropName].(string)
	return s
}

// Matcher resolves clicks. Ties go to the first candidate in collection
// order unless PreferNearest is set.
type Matcher struct {
	Multiplier float64
	// PreferNearest picks the closest candidate inside the window instead of
	// the first one in collection order.
	PreferNearest bool
}

// NewMatcher returns a Matcher using DefaultMultiplier.
func NewMatcher() Matcher {
	return Matcher{Multiplier: DefaultMultiplier}
}

// Resolve returns the index of the point the click refers to.
func (m Matcher) Resolve(click Click, view *View, features []geojson.Feature) (int, bool) {
	tol := ToleranceFor(view, m.Multiplier)
	name := click.Name()

	best, bestDist := NotFound, math.Inf(1)
	for i, f := range features {
		if f.Name() != name || !tol.Contains(click.Coordinates, f.Point()) {
			continue
		}
		if !m.PreferNearest {
			return i, true
		}
		// distance normalised by the window so both axes weigh the same
		dx := (f.Lon() - click.Coordinates.Lon()) / tol.Lng
		dy := (f.Lat() - click.Coordinates.Lat()) / tol.Lat
		if d := dx*dx + dy*dy; d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, best != NotFound
}

// ResolveClick is Resolve with a first-match Matcher.
func ResolveClick(click Click, view *View, features []geojson.Feature, multiplier float64) (int, bool) {
	return Matcher{Multiplier: multiplier}.Resolve(click, view, features)
}
