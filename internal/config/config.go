package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"exposure-server/shared/utils"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"

	MediaModeHTTP    = "http"
	MediaModeCatalog = "catalog"
	MediaModeOff     = "off"
)

// Config holds the configuration of the session server.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Scenario ScenarioConfig `yaml:"scenario"`
	Media    MediaConfig    `yaml:"media"`
	Playback PlaybackConfig `yaml:"playback"`
	Sessions SessionsConfig `yaml:"sessions"`
	Rewards  RewardsConfig  `yaml:"rewards"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
}

type ServerConfig struct {
	Port            string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*" env-separator:","`
	// RateLimitRequests requests per RateLimitWindow are allowed on mutating routes; 0 disables the limit.
	RateLimitRequests uint          `yaml:"rate_limit_requests" env:"RATE_LIMIT_REQUESTS" env-default:"120"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window" env:"RATE_LIMIT_WINDOW" env-default:"1m"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Encoding string `yaml:"encoding" env:"LOG_ENCODING" env-default:"json"`
}

// ScenarioConfig points at the narrative backend.
type ScenarioConfig struct {
	BaseURL string        `yaml:"base_url" env:"SCENARIO_BASE_URL" env-required:"true"`
	Timeout time.Duration `yaml:"timeout" env:"SCENARIO_TIMEOUT" env-default:"120s"`
}

// MediaConfig selects how ambient media is resolved: by the media service over HTTP,
// from the local asset catalog (optionally ranked by an AI model), or not at all.
type MediaConfig struct {
	Mode        string        `yaml:"mode" env:"MEDIA_MODE" env-default:"http"`
	BaseURL     string        `yaml:"base_url" env:"MEDIA_BASE_URL"`
	Timeout     time.Duration `yaml:"timeout" env:"MEDIA_TIMEOUT" env-default:"30s"`
	CatalogPath string        `yaml:"catalog_path" env:"MEDIA_CATALOG_PATH" env-default:"configs/media_catalog.yml"`
	AIBaseURL   string        `yaml:"ai_base_url" env:"MEDIA_AI_BASE_URL"`
	AIModel     string        `yaml:"ai_model" env:"MEDIA_AI_MODEL" env-default:"gpt-4o-mini"`
	AITimeout   time.Duration `yaml:"ai_timeout" env:"MEDIA_AI_TIMEOUT" env-default:"20s"`
	// AIAPIKey is read from the openai_api_key secret when present.
	AIAPIKey string `yaml:"-" env:"MEDIA_AI_API_KEY"`
}

type PlaybackConfig struct {
	ProbeTimeout time.Duration `yaml:"probe_timeout" env:"PLAYBACK_PROBE_TIMEOUT" env-default:"10s"`
}

type SessionsConfig struct {
	IdleTTL         time.Duration `yaml:"idle_ttl" env:"SESSION_IDLE_TTL" env-default:"2h"`
	JanitorInterval time.Duration `yaml:"janitor_interval" env:"SESSION_JANITOR_INTERVAL" env-default:"5m"`
	EventBuffer     int           `yaml:"event_buffer" env:"SESSION_EVENT_BUFFER" env-default:"64"`
}

// RewardsConfig selects the reward ledger store.
type RewardsConfig struct {
	Store string `yaml:"store" env:"REWARDS_STORE" env-default:"redis"`
}

type RedisConfig struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	DB   int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	// Password is read from the redis_password secret when present.
	Password string `yaml:"-" env:"REDIS_PASSWORD"`
}

type PostgresConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"exposure"`
	SSLMode  string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`
	MaxConns int32  `yaml:"max_conns" env:"DB_MAX_CONNECTIONS" env-default:"10"`
	// Password is read from the db_password secret when present.
	Password string `yaml:"-" env:"DB_PASSWORD"`
}

// RabbitMQConfig configures the collaborator queue. An empty URL disables publishing.
type RabbitMQConfig struct {
	URL            string        `yaml:"url" env:"RABBITMQ_URL"`
	Queue          string        `yaml:"queue" env:"SESSION_EVENTS_QUEUE" env-default:"session_events"`
	ConnectRetries int           `yaml:"connect_retries" env:"RABBITMQ_CONNECT_RETRIES" env-default:"5"`
	RetryDelay     time.Duration `yaml:"retry_delay" env:"RABBITMQ_RETRY_DELAY" env-default:"5s"`
}

// GetDSN returns the PostgreSQL connection string.
func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// Load reads .env (if present), then configPath, then the environment, then Docker secrets.
// A missing or unreadable config file falls back to the environment alone.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	cfg.Postgres.Password = utils.SecretOrValue("db_password", cfg.Postgres.Password)
	cfg.Redis.Password = utils.SecretOrValue("redis_password", cfg.Redis.Password)
	cfg.Media.AIAPIKey = utils.SecretOrValue("openai_api_key", cfg.Media.AIAPIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the choices that cannot be expressed with tags.
func (c *Config) Validate() error {
	switch c.Rewards.Store {
	case StoreRedis, StorePostgres:
	default:
		return fmt.Errorf("unknown rewards store %q", c.Rewards.Store)
	}
	switch c.Media.Mode {
	case MediaModeHTTP:
		if c.Media.BaseURL == "" {
			return errors.New("media base url is required in http mode")
		}
	case MediaModeCatalog, MediaModeOff:
	default:
		return fmt.Errorf("unknown media mode %q", c.Media.Mode)
	}
	if c.Sessions.IdleTTL <= 0 || c.Sessions.JanitorInterval <= 0 {
		return errors.New("session idle ttl and janitor interval must be positive")
	}
	return nil
}
