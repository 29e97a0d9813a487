package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/careline/message-dispatch/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const ConfigTagName = "env"
const ConfigDefaultTagName = "default"

var config *Config

// Config holds every configuration value used by the dispatch services.
// Only this struct must be used to read configuration, no direct access to
// env, ini or any other config source should be made.
type Config struct {
	AppEnv   string `env:"APP_ENV" default:"dev"`
	AppName  string `env:"APP_NAME" default:"message_dispatch"`
	AppDebug bool   `env:"APP_DEBUG" default:"1"`

	HttpListenAddr string `env:"HTTP_LISTEN_ADDR"`
	MetricsAddr    string `env:"METRICS_ADDR" default:":9100"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	PromNamespace string `env:"PROM_NAMESPACE"`

	LogLevel []string `env:"LOG_LEVEL"`

	// Entity lifecycle event stream
	EventStreamName        string        `env:"EVENT_STREAM_NAME" default:"entity_events"`
	EventConsumerGroup     string        `env:"EVENT_CONSUMER_GROUP" default:"messaging"`
	EventConsumerName      string        `env:"EVENT_CONSUMER_NAME" default:"messaging-consumer"`
	EventMaxRetries        int           `env:"EVENT_MAX_RETRIES" default:"3"`
	EventVisibilityTimeout time.Duration `env:"EVENT_VISIBILITY_TIMEOUT" default:"30s"`
	EventPollInterval      time.Duration `env:"EVENT_POLL_INTERVAL" default:"1s"`
	EventBatchSize         int64         `env:"EVENT_BATCH_SIZE" default:"10"`
	EventMaxLen            int64         `env:"EVENT_MAX_LEN"`
	EventEnableDLQ         bool          `env:"EVENT_ENABLE_DLQ" default:"1"`

	// Dispatch job
	DispatchInterval        time.Duration `env:"DISPATCH_INTERVAL" default:"1m"`
	DispatchClaimTTL        time.Duration `env:"DISPATCH_CLAIM_TTL" default:"5m"`
	DispatchMaxSendAttempts int           `env:"DISPATCH_MAX_SEND_ATTEMPTS" default:"10"`
	AdminUserName           string        `env:"ADMIN_USER_NAME" default:"admin"`

	// External collaborators
	ProviderBaseUrl     string        `env:"PROVIDER_BASE_URL"`
	ProviderTimeout     time.Duration `env:"PROVIDER_TIMEOUT" default:"10s"`
	ContactPageSize     int           `env:"CONTACT_PAGE_SIZE" default:"500"`
	RulesEngineBaseUrl  string        `env:"RULES_ENGINE_BASE_URL"`
	RulesEngineTimeout  time.Duration `env:"RULES_ENGINE_TIMEOUT" default:"10s"`
	ErrorTrackerWebhook string        `env:"ERROR_TRACKER_WEBHOOK"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.New("failed to load configuration file " + path + " error: " + err.Error())
		}
	}

	_, err = env.UnmarshalFromEnviron(c)

	if err != nil {
		return errors.New("failed to map env variables to Configuration object " + " error: " + err.Error())
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
