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

type AdmissionChecker interface {
	CheckAndIncrement(ctx context.Context) domain.AdmissionDecision
	Limit() int64
}

func Admission(checker AdmissionChecker) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx *request.Context) error {
			decision := checker.CheckAndIncrement(ctx.Context())
			if decision.Denied {
				return httperrors.New(
					http.StatusTooManyRequests,
					fmt.Sprintf("daily request limit has been reached: %d of %d", decision.CurrentCount, checker.Limit()),
					errors.Errorf("admission: daily request limit has been reached, count: %d, limit: %d",
						decision.CurrentCount, checker.Limit()),
				)
			}

			return next.Handle(ctx)
		})
	}
}
