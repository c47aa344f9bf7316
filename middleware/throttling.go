package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"quota-guard-service/domain"
	"quota-guard-service/httperrors"
	"quota-guard-service/request"
)

type Throttler interface {
	AllowRateLimit(ctx context.Context) (*domain.RateLimitResult, error)
}

func Throttling(throttler Throttler) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx *request.Context) error {
			result, err := throttler.AllowRateLimit(ctx.Context())
			if err != nil {
				return errors.WithMessage(err, "throttling: allow rate limit")
			}
			if !result.Allow {
				return httperrors.New(
					http.StatusTooManyRequests,
					fmt.Sprintf("rate limit has been reached, try after %dms", result.RetryAfter.Milliseconds()),
					errors.New("throttling: rate limit has been reached"),
				)
			}

			return next.Handle(ctx)
		})
	}
}
