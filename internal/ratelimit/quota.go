package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// QuotaResult is the outcome of an assisted quota check.
type QuotaResult struct {
	Allowed bool
	Used    int64
	Limit   int64
}

// AssistQuota counts AI-backed classifications per school and UTC day in Redis.
// Without Redis every check passes.
type AssistQuota struct {
	rdb *redis.Client
	now func() time.Time
}

func NewAssistQuota(rdb *redis.Client) *AssistQuota {
	return &AssistQuota{rdb: rdb, now: time.Now}
}

func (q *AssistQuota) key(schoolID string) string {
	day := q.now().UTC().Format("2006-01-02")
	return fmt.Sprintf("imgr:assist:daily:%s:%s", schoolID, day)
}

// Check reports whether the school may make another assisted classification today.
// A limit of zero or less means unlimited.
func (q *AssistQuota) Check(ctx context.Context, schoolID string, limit int64) QuotaResult {
	if q.rdb == nil || limit <= 0 {
		return QuotaResult{Allowed: true, Limit: limit}
	}
	used, err := q.rdb.Get(ctx, q.key(schoolID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("assist quota check failed", "error", err, "school_id", schoolID)
		return QuotaResult{Allowed: true, Limit: limit}
	}
	return QuotaResult{Allowed: used < limit, Used: used, Limit: limit}
}

// Record counts one assisted classification for the school.
func (q *AssistQuota) Record(ctx context.Context, schoolID string) error {
	if q.rdb == nil {
		return nil
	}
	now := q.now().UTC()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)

	pipe := q.rdb.Pipeline()
	pipe.Incr(ctx, q.key(schoolID))
	pipe.Expire(ctx, q.key(schoolID), endOfDay.Sub(now)+time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}
