package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"quota-guard-service/domain"
)

const (
	throttlingKey = "throttling:global"
)

type Throttling struct {
	cli              *redis_rate.Limiter
	operationTimeout time.Duration
}

func NewThrottling(cli redis.UniversalClient, operationTimeout time.Duration) Throttling {
	return Throttling{
		cli:              redis_rate.NewLimiter(cli),
		operationTimeout: operationTimeout,
	}
}

func (r Throttling) IsAllowRequestPerSecond(ctx context.Context, rate int) (*domain.RateLimitResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.operationTimeout)
	defer cancel()

	result, err := r.cli.Allow(ctx, throttlingKey, redis_rate.PerSecond(rate))
	if err != nil {
		return nil, errors.WithMessage(err, "redis_rate/Allow")
	}
	return &domain.RateLimitResult{
		Allow:      result.Allowed > 0,
		Remaining:  result.Remaining,
		RetryAfter: result.RetryAfter,
	}, nil
}
