// Package feature holds the normalized geospatial record model shared by
// every dataset format the service ingests.
package feature

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature is one geographic record: a geometry plus a scalar property map.
// DatasetID and DistanceKm are annotations applied by the search pipeline
// within a single request; cached features carry neither.
type Feature struct {
	Geometry   orb.Geometry
	Properties Properties
	DatasetID  string
	DistanceKm *float64
}

// Collection is an ordered sequence of features from one dataset.
type Collection []Feature

// FromGeoJSON converts a decoded GeoJSON feature collection. Source
// ordering is preserved. Features without a geometry are kept: they may
// still match text search, they just never receive a distance.
func FromGeoJSON(fc *geojson.FeatureCollection) Collection {
	if fc == nil {
		return Collection{}
	}
	out := make(Collection, 0, len(fc.Features))
	for _, gf := range fc.Features {
		if gf == nil {
			continue
		}
		out = append(out, Feature{
			Geometry:   gf.Geometry,
			Properties: PropertiesFromAny(gf.Properties),
		})
	}
	return out
}

// ToGeoJSON converts a feature back to a GeoJSON feature for transport.
// Pipeline annotations are emitted as the dataset_id and distance_km
// properties, matching the original API shape.
func (f Feature) ToGeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	gf.Properties = f.Properties.Interface()
	if f.DatasetID != "" {
		gf.Properties["dataset_id"] = f.DatasetID
	}
	if f.DistanceKm != nil {
		gf.Properties["distance_km"] = *f.DistanceKm
	}
	return gf
}
