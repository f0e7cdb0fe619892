package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "videoproc:msg:"

// Dedup remembers recently completed Pub/Sub message ids so duplicate
// deliveries can be acknowledged without redoing the work. It is an
// optimization only; correctness under at-least-once delivery comes
// from the pipeline's idempotent overwrite semantics.
type Dedup struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewDedup(rdb redis.UniversalClient, ttl time.Duration) *Dedup {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Dedup{rdb: rdb, ttl: ttl}
}

// Seen reports whether the message id was already processed. Errors are
// returned so the caller can log them, but a failing dedup lookup must
// never fail the run.
func (d *Dedup) Seen(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	n, err := d.rdb.Exists(ctx, dedupKeyPrefix+messageID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Record marks the message id as processed for the configured TTL.
func (d *Dedup) Record(ctx context.Context, messageID string) error {
	if messageID == "" {
		return nil
	}
	return d.rdb.Set(ctx, dedupKeyPrefix+messageID, "1", d.ttl).Err()
}
