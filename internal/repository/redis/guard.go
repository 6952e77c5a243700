package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "attendance:submission:"

// releaseScript deletes the lock only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SubmissionGuard is an attendance.SubmissionGuard shared by every API instance.
// The lock expires after ttl so a crashed holder cannot block an employee for good.
type SubmissionGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSubmissionGuard(client *redis.Client, ttl time.Duration) *SubmissionGuard {
	return &SubmissionGuard{client: client, ttl: ttl}
}

func lockKey(employeeID string) string {
	return keyPrefix + employeeID
}

// Acquire implements attendance.SubmissionGuard.
func (g *SubmissionGuard) Acquire(ctx context.Context, employeeID string) (func(context.Context), error) {
	key := lockKey(employeeID)
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire submission lock: %w", err)
	}
	if !ok {
		return nil, attendance.ErrSubmissionInFlight
	}

	return func(ctx context.Context) {
		if err := releaseScript.Run(ctx, g.client, []string{key}, token).Err(); err != nil {
			slog.Warn("Failed to release submission lock", "employee_id", employeeID, "error", err)
		}
	}, nil
}

var _ attendance.SubmissionGuard = (*SubmissionGuard)(nil)
