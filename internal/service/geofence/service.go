package geofence

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/geofence"
)

type GeofenceServiceImpl struct {
	zoneRepo geofence.ZoneRepository
}

func NewGeofenceService(zoneRepo geofence.ZoneRepository) geofence.GeofenceService {
	return &GeofenceServiceImpl{zoneRepo: zoneRepo}
}

// Candidates implements geofence.GeofenceService.
func (s *GeofenceServiceImpl) Candidates(ctx context.Context, req geofence.CandidatesRequest) (geofence.CandidatesResponse, error) {
	if err := req.Validate(); err != nil {
		return geofence.CandidatesResponse{}, err
	}

	zones, err := s.zoneRepo.ListZones(ctx)
	if err != nil {
		return geofence.CandidatesResponse{}, fmt.Errorf("failed to list department zones: %w", err)
	}

	candidates := Resolve(zones, *req.Latitude, *req.Longitude)
	resp := geofence.CandidatesResponse{
		Inside:     len(candidates) > 0,
		Candidates: make([]geofence.CandidateResponse, 0, len(candidates)),
	}
	for _, c := range candidates {
		resp.Candidates = append(resp.Candidates, geofence.CandidateResponse{
			DepartmentID:   c.DepartmentID,
			DepartmentName: c.DepartmentName,
		})
	}
	if !resp.Inside {
		if zone, dist, ok := Nearest(zones, *req.Latitude, *req.Longitude); ok {
			resp.NearestDepartmentID = &zone.DepartmentID
			meters := int(dist)
			resp.NearestDistanceMeters = &meters
		}
	}
	return resp, nil
}
