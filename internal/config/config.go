package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/vending-gateway/pkg/logger"
	"github.com/pkg/errors"
)

// Config holds every env-driven setting. It is loaded once in main and
// passed into the constructors that need it; nothing caches it globally.
type Config struct {
	AppEnv              string `env:"APP_ENV" default:"dev"`
	AppName             string `env:"APP_NAME" default:"vending_gateway"`
	AppDebug            bool   `env:"APP_DEBUG" default:"1"`
	AppDebugMetricsAddr string `env:"APP_DEBUG_METRIC_ADDR"`
	AppDebugMetricsURI  string `env:"APP_DEBUG_METRIC_URI"`

	HttpListenAddr string `env:"HTTP_LISTEN_ADDR" default:":8080"`

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

	MigrationsDir string `env:"MIGRATIONS_DIR"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	PromNamespace string `env:"PROM_NAMESPACE"`

	// Opn Payments (Omise) gateway settings. The secret key authenticates
	// via basic auth with an empty password; never logged.
	OpnAPIBaseURL   string        `env:"OPN_API_BASE_URL" default:"https://api.omise.co"`
	OpnSecretKey    string        `env:"OPN_SECRET_KEY"`
	OpnPublicKey    string        `env:"OPN_PUBLIC_KEY"`
	OpnTimeout      time.Duration `env:"OPN_TIMEOUT" default:"10s"`
	OpnCurrency     string        `env:"OPN_CURRENCY" default:"THB"`
	OpnSourceType   string        `env:"OPN_SOURCE_TYPE" default:"promptpay"`
	WebhookDedupTTL time.Duration `env:"WEBHOOK_DEDUP_TTL" default:"24h"`
}

func Load(path string) (*Config, error) {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return nil, errors.New("failed to load configuration file " + path + " error: " + err.Error())
		}
	}

	_, err = env.UnmarshalFromEnviron(c)

	if err != nil {
		return nil, errors.New("failed to map env variables to Configuration object " + " error: " + err.Error())
	}

	return c, nil
}
