package assembly

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"quota-guard-service/conf"
	"quota-guard-service/middleware"
	"quota-guard-service/notifier"
	"quota-guard-service/proxy"
	"quota-guard-service/repository"
	"quota-guard-service/service"

	"github.com/txix-open/isp-kit/lb"
	"github.com/txix-open/isp-kit/log"
)

type Locator struct {
	logger                      log.Logger
	httpHostManagerByModuleName map[string]*lb.RoundRobin
}

func NewLocator(
	logger log.Logger,
	httpHostManagerByModuleName map[string]*lb.RoundRobin,
) Locator {
	return Locator{
		logger:                      logger,
		httpHostManagerByModuleName: httpHostManagerByModuleName,
	}
}

func (l Locator) Handler(config conf.Remote, locations []conf.Location, redisCli redis.UniversalClient) (http.Handler, error) {
	gateMiddlewares := make([]middleware.Middleware, 0)

	if config.Throttling != nil {
		throttlingRepo := repository.NewThrottling(redisCli, config.Redis.OperationTimeout())
		throttlingService := service.NewThrottling(throttlingRepo, config.Throttling.RequestsPerSecond, l.logger)
		gateMiddlewares = append(gateMiddlewares, middleware.Throttling(throttlingService))
	}

	if config.DailyQuota != nil {
		var alertNotifier service.Notifier = notifier.NewNoop()
		if config.Notification != nil {
			alertNotifier = notifier.NewWebhook(config.Notification.WebhookUrl, config.Notification.Timeout())
		}

		quotaRepo := repository.NewQuota(redisCli, config.Redis.OperationTimeout())
		alertService := service.NewAlert(quotaRepo, alertNotifier, config.DailyQuota.RequestsPerDay, l.logger)
		admissionService := service.NewAdmission(quotaRepo, alertService, config.DailyQuota.RequestsPerDay, l.logger)
		gateMiddlewares = append(gateMiddlewares, middleware.Admission(admissionService))
	}

	mux := http.NewServeMux()
	for _, location := range locations {
		hostManager := l.httpHostManagerByModuleName[location.TargetModule]
		proxyFunc := proxy.NewHttp(hostManager, time.Duration(config.Http.ProxyTimeoutInSec)*time.Second)

		middlewares := []middleware.Middleware{
			middleware.RequestId(),
			middleware.Logger(l.logger, config.Logging.RequestLogEnable),
			middleware.ErrorHandler(l.logger),
		}
		if !location.SkipAdmission {
			middlewares = append(middlewares, gateMiddlewares...)
		}
		handler := middleware.Chain(proxyFunc, middlewares...)

		entrypoint := middleware.Entrypoint(
			config.Http.MaxRequestBodySizeInMb*1024*1024, //nolint:gomnd
			handler,
			location.PathPrefix,
			l.logger,
		)
		mux.Handle(fmt.Sprintf("%s/", location.PathPrefix), entrypoint)
	}

	return mux, nil
}
