package geofence

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GeoZone is a department's permitted-location polygon.
type GeoZone struct {
	DepartmentID   string
	DepartmentName string
	Polygon        []LatLng // at least 3 vertices; shorter polygons are ignored
}
