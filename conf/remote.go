package conf

import (
	"reflect"
	"time"

	"github.com/pkg/errors"
	"github.com/txix-open/isp-kit/log"
	"github.com/txix-open/isp-kit/rc/schema"
	"github.com/txix-open/jsonschema"
)

const (
	defaultStoreDialTimeout      = 3 * time.Second
	defaultStoreOperationTimeout = 1 * time.Second
	defaultNotificationTimeout   = 5 * time.Second
)

func init() {
	schema.CustomGenerators.Register("logLevel", func(field reflect.StructField, t *jsonschema.Schema) {
		t.Type = "string"
		t.Enum = []interface{}{"debug", "info", "error", "fatal"}
	})
}

type Remote struct {
	Redis        *Redis        `schema:"Настройки Redis,обязательно, если используется суточная квота или ограничение пропускной способности"`
	Http         Http          `schema:"Настройки HTTP"`
	Logging      Logging       `schema:"Настройки логирования"`
	DailyQuota   *DailyQuota   `schema:"Настройки суточной квоты,единый счетчик на все запросы, сбрасывается через 24 часа после первого запроса дня"`
	Throttling   *Throttling   `schema:"Настройки пропускной способности"`
	Notification *Notification `schema:"Настройки оповещения,отправляется не более одного оповещения в сутки при превышении квоты"`
}

type Http struct {
	MaxRequestBodySizeInMb int64 `valid:"required" schema:"Максимальная длинна тела запроса,в мегабайтах"`
	ProxyTimeoutInSec      int   `valid:"required" schema:"Таймаут на проксирование,в секундах"`
}

type Logging struct {
	LogLevel         log.Level `schemaGen:"logLevel" schema:"Уровень логирования,логирование запросов осуществляется на уровне debug"`
	RequestLogEnable bool      `schema:"Включить логирование запросов"`
}

type DailyQuota struct {
	RequestsPerDay int64 `valid:"required" schema:"Запросов в сутки,запросы сверх лимита отклоняются до истечения счетчика"`
}

type Throttling struct {
	RequestsPerSecond int `valid:"required,range(1|1000)" schema:"Запросов в секунду,не конфликтует с суточной квотой, алгоритм не работает на значениях больше 1000"`
}

type Notification struct {
	WebhookUrl   string `valid:"required" schema:"Адрес вебхука,оповещение отправляется POST запросом в формате JSON"`
	TimeoutInSec int    `schema:"Таймаут отправки,в секундах, по умолчанию 5"`
}

type Redis struct {
	Address               string         `schema:"Адрес,обязателено, если sentinel не указан"`
	Username              string         `schema:"Имя пользовтаеля"`
	Password              string         `schema:"Пароль"`
	Sentinel              *RedisSentinel `schema:"Настройки sentinel,обязательно, если address не указан"`
	DialTimeoutInSec      int            `schema:"Таймаут установки соединения,в секундах, по умолчанию 3"`
	OperationTimeoutInSec int            `schema:"Таймаут операции,в секундах, по умолчанию 1"`
}

type RedisSentinel struct {
	Addresses  []string `valid:"required" schema:"Адреса нод в кластере"`
	MasterName string   `valid:"required" schema:"Имя мастера"`
	Username   string   `schema:"Имя пользовтаеля в sentinel"`
	Password   string   `schema:"Пароль в sentinel"`
}

func (r Remote) Validate() error {
	if (r.DailyQuota != nil || r.Throttling != nil) && r.Redis == nil {
		return errors.New("redis is required if dailyQuota or throttling were specified")
	}
	if r.Redis != nil && r.Redis.Sentinel == nil && r.Redis.Address == "" {
		return errors.New("invalid redis config. sentinel or address are required")
	}
	if r.DailyQuota != nil && r.DailyQuota.RequestsPerDay <= 0 {
		return errors.New("dailyQuota.requestsPerDay must be positive")
	}
	return nil
}

func (r Redis) DialTimeout() time.Duration {
	if r.DialTimeoutInSec <= 0 {
		return defaultStoreDialTimeout
	}
	return time.Duration(r.DialTimeoutInSec) * time.Second
}

func (r Redis) OperationTimeout() time.Duration {
	if r.OperationTimeoutInSec <= 0 {
		return defaultStoreOperationTimeout
	}
	return time.Duration(r.OperationTimeoutInSec) * time.Second
}

func (n Notification) Timeout() time.Duration {
	if n.TimeoutInSec <= 0 {
		return defaultNotificationTimeout
	}
	return time.Duration(n.TimeoutInSec) * time.Second
}
