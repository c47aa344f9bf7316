package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	counterKeyPrefix       = "counter"
	alertSentinelKeyPrefix = "alert-sent"

	// keys live a full day from first write, the next day always
	// starts a fresh key so stale counters never accumulate
	keyTtl = 24 * time.Hour
)

type Quota struct {
	cli              redis.UniversalClient
	operationTimeout time.Duration
}

func NewQuota(cli redis.UniversalClient, operationTimeout time.Duration) Quota {
	return Quota{
		cli:              cli,
		operationTimeout: operationTimeout,
	}
}

// Increment atomically increments today's counter and returns the new value.
// The 24h TTL is applied on the first write of the day.
func (r Quota) Increment(ctx context.Context, today time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.operationTimeout)
	defer cancel()

	key := counterKey(today)
	value, err := r.cli.Incr(ctx, key).Result()
	if err != nil {
		return 0, errors.WithMessage(err, "incr")
	}

	if value == 1 {
		err := r.cli.ExpireNX(ctx, key, keyTtl).Err()
		if err != nil {
			return 0, errors.WithMessage(err, "expire nx")
		}
	}

	return value, nil
}

// SetAlertSentinel atomically creates today's alert sentinel and reports
// whether this caller created it. The sentinel carries the same 24h TTL
// as the counter, so both reset together.
func (r Quota) SetAlertSentinel(ctx context.Context, today time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.operationTimeout)
	defer cancel()

	created, err := r.cli.SetNX(ctx, alertSentinelKey(today), 1, keyTtl).Result()
	if err != nil {
		return false, errors.WithMessage(err, "set nx")
	}

	return created, nil
}

func counterKey(today time.Time) string {
	return fmt.Sprintf("%s:%s", counterKeyPrefix, day(today))
}

func alertSentinelKey(today time.Time) string {
	return fmt.Sprintf("%s:%s", alertSentinelKeyPrefix, day(today))
}

// all instances must agree on "today" regardless of host timezone
func day(today time.Time) string {
	return today.UTC().Format(time.DateOnly)
}
