package notifier

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/txix-open/isp-kit/http/httpcli"
	"quota-guard-service/domain"
)

type Webhook struct {
	cli        *httpcli.Client
	webhookUrl string
	timeout    time.Duration
}

func NewWebhook(webhookUrl string, timeout time.Duration) Webhook {
	return Webhook{
		cli:        httpcli.New(),
		webhookUrl: webhookUrl,
		timeout:    timeout,
	}
}

func (n Webhook) Notify(ctx context.Context, message domain.AlertMessage) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	_, err := n.cli.Post(n.webhookUrl).
		JsonRequestBody(message).
		StatusCodeToError().
		Do(ctx)
	if err != nil {
		return errors.WithMessagef(err, "post alert to %s", n.webhookUrl)
	}

	return nil
}
