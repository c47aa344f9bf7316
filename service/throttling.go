package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/txix-open/isp-kit/log"
	"quota-guard-service/domain"
)

type ThrottlingRepo interface {
	IsAllowRequestPerSecond(ctx context.Context, rate int) (*domain.RateLimitResult, error)
}

type Throttling struct {
	repo   ThrottlingRepo
	rate   int
	logger log.Logger
}

func NewThrottling(repo ThrottlingRepo, rate int, logger log.Logger) Throttling {
	return Throttling{
		repo:   repo,
		rate:   rate,
		logger: logger,
	}
}

// AllowRateLimit follows the same fail-open policy as the daily quota:
// a store failure allows the request and is only visible in the logs.
func (s Throttling) AllowRateLimit(ctx context.Context) (*domain.RateLimitResult, error) {
	result, err := s.repo.IsAllowRequestPerSecond(ctx, s.rate)
	if err != nil {
		s.logger.Error(ctx, errors.WithMessage(err, "throttling: is allow request per second, fail open"))
		return &domain.RateLimitResult{
			Allow:      true,
			Remaining:  -1,
			RetryAfter: -1,
		}, nil
	}

	return result, nil
}
