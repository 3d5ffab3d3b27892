// Package geojson holds the point-of-interest feature model and the validator
// that turns untrusted GeoJSON into accepted point features.
package geojson

import (
	"encoding/json"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

const (
	TypeFeatureCollection = "FeatureCollection"
	TypeFeature           = "Feature"
	TypePoint             = "Point"
)

// Property keys with meaning to the editor.
const (
	PropName     = "name"
	PropCategory = "category"
	PropID       = "id"
)

// Geometry is always a Point; Coordinates is [lon, lat].
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates orb.Point `json:"coordinates"`
}

// Properties carries name, category, an optional id and any extra attributes.
type Properties map[string]any

// Feature is a single point of interest.
type Feature struct {
	Type       string     `json:"type"`
	Geometry   Geometry   `json:"geometry"`
	Properties Properties `json:"properties"`
}

// CreateFeature builds a well-formed point feature. No range checks are made;
// the caller is responsible for passing valid coordinates.
func CreateFeature(lon, lat float64, name, category, id string) Feature {
	props := Properties{
		PropName:     name,
		PropCategory: category,
	}
	if id != "" {
		props[PropID] = id
	}
	return Feature{
		Type:       TypeFeature,
		Geometry:   Geometry{Type: TypePoint, Coordinates: orb.Point{lon, lat}},
		Properties: props,
	}
}

func (f Feature) Lon() float64 { return f.Geometry.Coordinates.Lon() }
func (f Feature) Lat() float64 { return f.Geometry.Coordinates.Lat() }
func (f Feature) Point() orb.Point { return f.Geometry.Coordinates }

func (f Feature) Name() string {
	s, _ := f.Properties[PropName].(string)
	return s
}

func (f Feature) Category() string {
	s, _ := f.Properties[PropCategory].(string)
	return s
}

// ID returns the id property as a string. Numeric ids are formatted without
// exponent; a missing or unsupported id yields "".
func (f Feature) ID() string {
	return idString(f.Properties[PropID])
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case json.Number:
		return id.String()
	}
	return ""
}

// Clone copies the feature. Nested objects and arrays in the properties are
// copied too.
func (f Feature) Clone() Feature {
	props := make(Properties, len(f.Properties))
	for k, v := range f.Properties {
		props[k] = cloneValue(v)
	}
	f.Properties = props
	return f
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = cloneValue(e)
		}
		return out
	case Properties:
		out := make(Properties, len(val))
		for k, e := range val {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		return lo.Map(val, func(e any, _ int) any { return cloneValue(e) })
	default:
		return v
	}
}

// Collection is an ordered set of point features. Position in Features is
// the index used by the editor.
type Collection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Empty returns the canonical "no data" collection.
func Empty() Collection {
	return Collection{Type: TypeFeatureCollection, Features: []Feature{}}
}

// NewCollection wraps features in a FeatureCollection.
func NewCollection(features []Feature) Collection {
	if features == nil {
		features = []Feature{}
	}
	return Collection{Type: TypeFeatureCollection, Features: features}
}

func (c Collection) Len() int { return len(c.Features) }

func (c Collection) Clone() Collection {
	return NewCollection(lo.Map(c.Features, func(f Feature, _ int) Feature {
		return f.Clone()
	}))
}

// Bounds returns the bounding box of all points, or false when empty.
func (c Collection) Bounds() (orb.Bound, bool) {
	if len(c.Features) == 0 {
		return orb.Bound{}, false
	}
	points := lo.Map(c.Features, func(f Feature, _ int) orb.Point { return f.Point() })
	return orb.MultiPoint(points).Bound(), true
}

type collectionJSON Collection

func (c Collection) MarshalJSON() ([]byte, error) {
	out := collectionJSON(c)
	out.Type = TypeFeatureCollection
	if out.Features == nil {
		out.Features = []Feature{}
	}
	return json.Marshal(out)
}

func (c *Collection) UnmarshalJSON(data []byte) error {
	var in collectionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*c = NewCollection(in.Features)
	return nil
}
