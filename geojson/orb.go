package geojson

import (
	orbgeo "github.com/paulmach/orb/geojson"
)

// ToOrb converts the collection to an orb feature collection. Properties are
// copied so the result can be modified independently.
func (c Collection) ToOrb() *orbgeo.FeatureCollection {
	fc := orbgeo.NewFeatureCollection()
	for _, f := range c.Features {
		of := orbgeo.NewFeature(f.Point())
		for k, v := range f.Properties {
			of.Properties[k] = v
		}
		fc.Append(of)
	}
	return fc
}
