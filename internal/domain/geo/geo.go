// Package geo provides the distance and coordinate helpers used by the
// search pipeline.
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadiusKm is the mean radius of Earth used for Haversine distance.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between two
// points specified by latitude and longitude in degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// UTM zone 32N parameters for the rough conversion below.
const (
	utm32NFalseEasting = 500000.0
	metersPerDegree    = 111320.0
	utm32NBaseLon      = 11.5
)

// projectedThresholdX separates geographic longitudes from projected
// easting values: no geographic x-coordinate exceeds 180.
const projectedThresholdX = 180.0

// ApproxUTM32NToGeographic converts a UTM zone 32N easting/northing pair to
// an approximate lat/lon. This is NOT a real reprojection: it is the rough
// linear conversion inherited from the upstream data pipeline, kept
// bit-for-bit so ordering stays consistent with existing consumers. It
// exists solely to support the LooksProjected heuristic and must not be
// used where geographic correctness matters.
func ApproxUTM32NToGeographic(x, y float64) (lat, lon float64, ok bool) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return 0, 0, false
	}
	x -= utm32NFalseEasting
	lon = utm32NBaseLon + x/metersPerDegree
	lat = y/metersPerDegree - 1000
	return lat, lon, true
}

// LooksProjected reports whether a raw x-coordinate magnitude indicates a
// projected coordinate pair rather than a geographic one.
func LooksProjected(x float64) bool {
	return math.Abs(x) > projectedThresholdX
}

// PointGeographic resolves a raw point to geographic coordinates. Points
// that look projected go through the approximate conversion; everything
// else is taken directly as [lon, lat] per GeoJSON axis order.
func PointGeographic(p orb.Point) (lat, lon float64, ok bool) {
	if LooksProjected(p[0]) {
		return ApproxUTM32NToGeographic(p[0], p[1])
	}
	return p[1], p[0], true
}
