package geofence

import (
	"github.com/cmlabs-hris/attendance-engine/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/utils"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const minPolygonVertices = 3

func ring(polygon []geofence.LatLng) orb.Ring {
	r := make(orb.Ring, 0, len(polygon)+1)
	for _, v := range polygon {
		r = append(r, orb.Point{v.Lng, v.Lat})
	}
	if !r[0].Equal(r[len(r)-1]) {
		r = append(r, r[0])
	}
	return r
}

// Contains reports whether the coordinate lies inside zone or on its boundary.
// Zones with fewer than three vertices contain nothing.
func Contains(zone geofence.GeoZone, lat, lng float64) bool {
	if len(zone.Polygon) < minPolygonVertices {
		return false
	}
	return planar.RingContains(ring(zone.Polygon), orb.Point{lng, lat})
}

// Resolve returns every zone containing the coordinate, in input order.
func Resolve(zones []geofence.GeoZone, lat, lng float64) []geofence.GeoZone {
	var candidates []geofence.GeoZone
	for _, zone := range zones {
		if Contains(zone, lat, lng) {
			candidates = append(candidates, zone)
		}
	}
	return candidates
}

// SelectDepartment picks preferred when it is still a candidate, otherwise the first candidate.
func SelectDepartment(candidates []geofence.GeoZone, preferred *string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	if preferred != nil {
		for _, c := range candidates {
			if c.DepartmentID == *preferred {
				return c.DepartmentID, true
			}
		}
	}
	return candidates[0].DepartmentID, true
}

// Nearest returns the zone whose centroid is closest to the coordinate and the distance in meters.
func Nearest(zones []geofence.GeoZone, lat, lng float64) (geofence.GeoZone, float64, bool) {
	var (
		best     geofence.GeoZone
		bestDist float64
		found    bool
	)
	for _, zone := range zones {
		if len(zone.Polygon) < minPolygonVertices {
			continue
		}
		centroid, _ := planar.CentroidArea(ring(zone.Polygon))
		d := utils.HaversineMeters(lat, lng, centroid.Lat(), centroid.Lon())
		if !found || d < bestDist {
			best, bestDist, found = zone, d, true
		}
	}
	return best, bestDist, found
}
