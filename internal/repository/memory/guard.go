package memory

import (
	"context"
	"sync"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
)

// SubmissionGuard is a process-local attendance.SubmissionGuard.
type SubmissionGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewSubmissionGuard() *SubmissionGuard {
	return &SubmissionGuard{inFlight: make(map[string]struct{})}
}

// Acquire implements attendance.SubmissionGuard.
func (g *SubmissionGuard) Acquire(ctx context.Context, employeeID string) (func(context.Context), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inFlight[employeeID]; busy {
		return nil, attendance.ErrSubmissionInFlight
	}
	g.inFlight[employeeID] = struct{}{}

	var once sync.Once
	return func(context.Context) {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, employeeID)
			g.mu.Unlock()
		})
	}, nil
}
