package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/txix-open/isp-kit/log"
	"quota-guard-service/domain"
)

type AlertRepo interface {
	SetAlertSentinel(ctx context.Context, today time.Time) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, message domain.AlertMessage) error
}

type Alert struct {
	repo     AlertRepo
	notifier Notifier
	limit    int64
	logger   log.Logger
}

func NewAlert(repo AlertRepo, notifier Notifier, limit int64, logger log.Logger) Alert {
	return Alert{
		repo:     repo,
		notifier: notifier,
		limit:    limit,
		logger:   logger,
	}
}

// MaybeAlert notifies about an exceeded quota at most once per day. Racing
// callers are arbitrated by an atomic set-if-absent on the day's sentinel key,
// only the caller that created the key dispatches the notification. All
// failures are logged and swallowed, alerting never affects admission.
func (s Alert) MaybeAlert(ctx context.Context, today time.Time, currentCount int64) {
	won, err := s.repo.SetAlertSentinel(ctx, today)
	if err != nil {
		s.logger.Error(ctx, errors.WithMessage(err, "alert: set alert sentinel"))
		return
	}
	if !won {
		return
	}

	message := domain.AlertMessage{
		Date:         today.UTC().Format(time.DateOnly),
		CurrentCount: currentCount,
		Limit:        s.limit,
	}
	err = s.notifier.Notify(ctx, message)
	if err != nil {
		s.logger.Error(ctx, errors.WithMessage(err, "alert: notify"))
		return
	}

	s.logger.Info(ctx, "daily quota exceeded, alert dispatched",
		log.String("date", message.Date),
		log.Int64("currentCount", currentCount),
		log.Int64("limit", s.limit),
	)
}
