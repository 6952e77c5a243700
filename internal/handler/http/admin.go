package http

import (
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
)

type AdminHandler interface {
	Reconcile(w http.ResponseWriter, r *http.Request)
}

type adminHandlerImpl struct {
	reconciler attendance.AbsenceReconciler
	now        func() time.Time
}

func NewAdminHandler(reconciler attendance.AbsenceReconciler) AdminHandler {
	return &adminHandlerImpl{reconciler: reconciler, now: time.Now}
}

// Reconcile runs one reconciler tick on demand. Safe alongside the scheduled job.
func (h *adminHandlerImpl) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconciler.Tick(r.Context(), h.now())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Reconciliation finished", result)
}
