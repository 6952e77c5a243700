package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
)

type zoneRepository struct {
	db *database.DB
}

func NewZoneRepository(db *database.DB) geofence.ZoneRepository {
	return &zoneRepository{db: db}
}

// ListZones implements geofence.ZoneRepository.
func (z *zoneRepository) ListZones(ctx context.Context) ([]geofence.GeoZone, error) {
	q := GetQuerier(ctx, z.db)

	rows, err := q.Query(ctx, `SELECT id, name, zone FROM departments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list department zones: %w", err)
	}
	defer rows.Close()

	var zones []geofence.GeoZone
	for rows.Next() {
		var (
			zone geofence.GeoZone
			raw  []byte
		)
		if err := rows.Scan(&zone.DepartmentID, &zone.DepartmentName, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan department zone: %w", err)
		}
		if err := json.Unmarshal(raw, &zone.Polygon); err != nil {
			return nil, fmt.Errorf("department %s has a malformed zone: %w", zone.DepartmentID, err)
		}
		zones = append(zones, zone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate department zones: %w", err)
	}
	return zones, nil
}
