package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Sales        SalesConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Outbox.validate(); err != nil {
		return nil, err
	}
	if cfg.App.IsProd() && strings.HasPrefix(strings.ToLower(cfg.DB.Driver), "sqlite") {
		return nil, fmt.Errorf("%s=%s is not allowed in production", EnvDBDriver, cfg.DB.Driver)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"POS_APP_ENV" required:"true"`
	Port         string `envconfig:"POS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"POS_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"POS_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"POS_LOG_WARN_STACK" default:"false"`

	CORSAllowedOrigins []string      `envconfig:"POS_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout    time.Duration `envconfig:"POS_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"POS_DB_DSN"`
	Driver string `envconfig:"POS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"POS_DB_HOST"`
	LegacyPort     int    `envconfig:"POS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"POS_DB_USER"`
	LegacyPassword string `envconfig:"POS_DB_PASSWORD"`
	LegacyName     string `envconfig:"POS_DB_NAME"`
	LegacySSLMode  string `envconfig:"POS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"POS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"POS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"POS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"POS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"POS_REDIS_URL"`
	Address      string        `envconfig:"POS_REDIS_ADDR"`
	Password     string        `envconfig:"POS_REDIS_PASSWORD"`
	DB           int           `envconfig:"POS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"POS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"POS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"POS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"POS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"POS_JWT_EXPIRATION_MINUTES" default:"720"`
}

// SalesConfig tunes the sale commit workflow.
type SalesConfig struct {
	AllowBackorder       bool          `envconfig:"POS_SALES_ALLOW_BACKORDER" default:"true"`
	CommitMaxRetries     uint64        `envconfig:"POS_SALES_COMMIT_MAX_RETRIES" default:"3"`
	CommitRetryBaseDelay time.Duration `envconfig:"POS_SALES_COMMIT_RETRY_BASE_DELAY" default:"25ms"`
	ReceiptBaseURL       string        `envconfig:"POS_SALES_RECEIPT_BASE_URL" default:"http://localhost:8080/receipts"`
}

type RateLimitConfig struct {
	SalesWindow time.Duration `envconfig:"POS_RATE_LIMIT_SALES_WINDOW" default:"1m"`
	SalesLimit  int           `envconfig:"POS_RATE_LIMIT_SALES_LIMIT" default:"120"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"POS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"POS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	SalesTopic     string `envconfig:"POS_PUBSUB_SALES_TOPIC" default:"pos-sales-events"`
	InventoryTopic string `envconfig:"POS_PUBSUB_INVENTORY_TOPIC" default:"pos-inventory-events"`
}

type KafkaConfig struct {
	Brokers []string `envconfig:"POS_KAFKA_BROKERS"`
}

type OutboxConfig struct {
	Sink           string `envconfig:"POS_OUTBOX_SINK" default:"pubsub"`
	BatchSize      int    `envconfig:"POS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"POS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"POS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (o OutboxConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(o.Sink)) {
	case OutboxSinkPubSub, OutboxSinkKafka:
		return nil
	}
	return fmt.Errorf("%s must be %q or %q", EnvOutboxSink, OutboxSinkPubSub, OutboxSinkKafka)
}

// SinkName returns the normalized outbox sink.
func (o OutboxConfig) SinkName() string {
	sink := strings.ToLower(strings.TrimSpace(o.Sink))
	if sink == "" {
		return OutboxSinkPubSub
	}
	return sink
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
