package geofence

import "context"

type ZoneRepository interface {
	// ListZones returns every department zone.
	ListZones(ctx context.Context) ([]GeoZone, error)
}
