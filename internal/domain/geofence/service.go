package geofence

import "context"

type GeofenceService interface {
	// Candidates lists the department zones containing the coordinate.
	Candidates(ctx context.Context, req CandidatesRequest) (CandidatesResponse, error)
}
