package notifier

import (
	"context"

	"quota-guard-service/domain"
)

// Noop is used when no webhook is configured.
type Noop struct{}

func NewNoop() Noop {
	return Noop{}
}

func (n Noop) Notify(ctx context.Context, message domain.AlertMessage) error {
	return nil
}
