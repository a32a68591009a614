// internal/pipeline/progress.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"ticket-router/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// Progress records per-ticket stage status. Recording is best-effort: the
// pipeline's outcome never depends on a progress write.
type Progress interface {
	Record(ctx context.Context, ticketID, stage, status string)
}

// RedisProgress keeps one hash per ticket with a TTL, so operators can inspect
// where an in-flight or recently finished ticket got to.
type RedisProgress struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisProgress(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisProgress {
	return &RedisProgress{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "pipeline.progress"}),
	}
}

func progressKey(ticketID string) string {
	return fmt.Sprintf("ticket:progress:%s", ticketID)
}

func (p *RedisProgress) Record(ctx context.Context, ticketID, stage, status string) {
	key := progressKey(ticketID)
	pipe := p.client.Pipeline()
	pipe.HSet(ctx, key, stage, status, "updated_at", time.Now().UTC().Format(time.RFC3339))
	pipe.Expire(ctx, key, p.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		p.logger.Warn("progress write failed", map[string]interface{}{
			"ticketId": ticketID,
			"stage":    stage,
			"error":    err.Error(),
		})
	}
}

// NoopProgress is used when no Redis progress backend is configured.
type NoopProgress struct{}

func (NoopProgress) Record(ctx context.Context, ticketID, stage, status string) {}
