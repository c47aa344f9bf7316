package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/txix-open/isp-kit/log"
	"quota-guard-service/domain"
)

const (
	alertTimeout = 10 * time.Second
)

type QuotaRepo interface {
	Increment(ctx context.Context, today time.Time) (int64, error)
}

type AlertService interface {
	MaybeAlert(ctx context.Context, today time.Time, currentCount int64)
}

type Admission struct {
	repo   QuotaRepo
	alerts AlertService
	limit  int64
	logger log.Logger
	now    func() time.Time
}

func NewAdmission(repo QuotaRepo, alerts AlertService, limit int64, logger log.Logger) *Admission {
	return &Admission{
		repo:   repo,
		alerts: alerts,
		limit:  limit,
		logger: logger,
		now:    time.Now,
	}
}

// CheckAndIncrement counts the request against today's quota and returns the verdict.
// A count equal to the limit is still allowed, only strictly greater counts are denied.
//
// Fail-open: if the quota store is unavailable the request is allowed with a zero
// count. An unavailable accounting store must not become an outage for the
// protected resource, so store errors are logged and never returned to the caller.
func (s *Admission) CheckAndIncrement(ctx context.Context) domain.AdmissionDecision {
	today := s.now()

	value, err := s.repo.Increment(ctx, today)
	if err != nil {
		s.logger.Error(ctx, errors.WithMessage(err, "admission: increment quota counter, fail open"))
		return domain.AdmissionDecision{Denied: false, CurrentCount: 0}
	}

	if value > s.limit {
		s.triggerAlert(today, value)
		return domain.AdmissionDecision{Denied: true, CurrentCount: value}
	}

	return domain.AdmissionDecision{Denied: false, CurrentCount: value}
}

func (s *Admission) Limit() int64 {
	return s.limit
}

// alerting is best-effort and must never block or fail the admission decision,
// so it runs on a detached bounded context
func (s *Admission) triggerAlert(today time.Time, currentCount int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
		defer cancel()
		s.alerts.MaybeAlert(ctx, today, currentCount)
	}()
}
