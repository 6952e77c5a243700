package utils

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// HaversineMeters returns the great-circle distance in meters between two WGS84 coordinates.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
}
