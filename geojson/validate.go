package geojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrInvalidJSON is returned when an import payload does not parse as JSON.
var ErrInvalidJSON = errors.New("invalid file")

// Decode parses raw import bytes into generic JSON values, the input shape
// expected by Validate. Numbers decode as float64.
func Decode(data []byte) (any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return raw, nil
}

// Validate checks a decoded document and returns the accepted point
// features together with a tally of why the others were rejected.
//
// Anything other than an object with type "FeatureCollection" and an array
// of features yields an empty report. Each feature is classified by the
// first rule it fails:
//   - not an object, or type != "Feature": Other
//   - geometry missing or not a Point: InvalidGeometry
//   - coordinates not two numbers, or out of range: InvalidCoordinates
//   - properties missing, or name/category not strings: MissingProperties
func Validate(raw any) Report {
	report := Report{Accepted: []Feature{}}

	doc, ok := raw.(map[string]any)
	if !ok || doc["type"] != TypeFeatureCollection {
		return report
	}
	features, ok := doc["features"].([]any)
	if !ok {
		return report
	}

	for _, v := range features {
		f, reason := validateFeature(v)
		if reason != Accepted {
			report.reject(reason)
			continue
		}
		report.Accepted = append(report.Accepted, f)
	}
	return report
}

func validateFeature(v any) (Feature, Reason) {
	obj, ok := v.(map[string]any)
	if !ok || obj["type"] != TypeFeature {
		return Feature{}, Other
	}

	geom, ok := obj["geometry"].(map[string]any)
	if !ok || geom["type"] != TypePoint {
		return Feature{}, InvalidGeometry
	}

	coords, ok := geom["coordinates"].([]any)
	if !ok || len(coords) < 2 {
		return Feature{}, InvalidCoordinates
	}
	lon, lonOK := number(coords[0])
	lat, latOK := number(coords[1])
	if !lonOK || !latOK {
		return Feature{}, InvalidCoordinates
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return Feature{}, InvalidCoordinates
	}

	props, ok := obj["properties"].(map[string]any)
	if !ok {
		return Feature{}, MissingProperties
	}
	if _, ok := props[PropName].(string); !ok {
		return Feature{}, MissingProperties
	}
	if _, ok := props[PropCategory].(string); !ok {
		return Feature{}, MissingProperties
	}

	out := make(Properties, len(props))
	for k, val := range props {
		out[k] = val
	}
	return Feature{
		Type:       TypeFeature,
		Geometry:   Geometry{Type: TypePoint, Coordinates: orb.Point{lon, lat}},
		Properties: out,
	}, Accepted
}

// number accepts the numeric shapes a JSON decoder can produce. NaN is not a
// coordinate.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
