package http

import (
	"net/http"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
)

type GeofenceHandler interface {
	Candidates(w http.ResponseWriter, r *http.Request)
}

type geofenceHandlerImpl struct {
	geofenceService geofence.GeofenceService
}

func NewGeofenceHandler(geofenceService geofence.GeofenceService) GeofenceHandler {
	return &geofenceHandlerImpl{geofenceService: geofenceService}
}

// Candidates implements GeofenceHandler.
func (h *geofenceHandlerImpl) Candidates(w http.ResponseWriter, r *http.Request) {
	coordinate, err := parseCoordinate(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var req geofence.CandidatesRequest
	if coordinate != nil {
		req.Latitude = &coordinate.Latitude
		req.Longitude = &coordinate.Longitude
	}

	result, err := h.geofenceService.Candidates(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
