package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_ENV"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
// `required:"true"` makes an environment variable mandatory.
type Config struct {
	AppEnv    string `envconfig:"APP_ENV" default:"development"` // e.g., development, staging, production
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`      // e.g., debug, info, warn, error
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`     // json or console
	// DefaultActor is recorded as create/update user when a request carries no X-Actor header.
	DefaultActor string `envconfig:"DEFAULT_ACTOR" default:"system"`

	HttpServer   ServerConfig
	GrpcServer   GrpcServerConfig
	Postgres     PostgresConfig
	OrderService OrderServiceConfig
	Chat         ChatConfig
	Metrics      MetricsConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port           string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead    time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite   time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle    time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
	TimeoutRequest time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_REQUEST" default:"60s"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// PostgresConfig holds PostgreSQL database connection details.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	DBName   string `envconfig:"POSTGRES_DBNAME" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"POSTGRES_MAX_IDLE_CONNS" default:"25"`
	ConnMaxLifetime time.Duration `envconfig:"POSTGRES_CONN_MAX_LIFETIME" default:"5m"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName, pc.SSLMode)
}

// OrderServiceConfig points at the order-history service used for
// per-user recommendations.
type OrderServiceConfig struct {
	URL                 string        `envconfig:"ORDER_SERVICE_URL" default:"http://localhost:8082"`
	Timeout             time.Duration `envconfig:"ORDER_SERVICE_TIMEOUT" default:"3s"`
	BreakerMinRequests  uint32        `envconfig:"ORDER_SERVICE_BREAKER_MIN_REQUESTS" default:"3"`
	BreakerFailureRatio float64       `envconfig:"ORDER_SERVICE_BREAKER_FAILURE_RATIO" default:"0.6"`
	BreakerOpenTimeout  time.Duration `envconfig:"ORDER_SERVICE_BREAKER_OPEN_TIMEOUT" default:"30s"`
}

// ChatConfig holds the static texts of the storefront chat widget.
type ChatConfig struct {
	About      string `envconfig:"CHAT_ABOUT_TEXT" default:"Our smart e-commerce platform offers a personalised shopping experience, bringing products, inventory, payments and recommendations together."`
	Promotions string `envconfig:"CHAT_PROMOTIONS_TEXT" default:"Current promotions: 30 off every 200 spent, 5% student discount, and flash sales on selected bestsellers."`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Path string `envconfig:"METRICS_PATH" default:"/metrics"`
}

// Load initializes the configuration from environment variables.
// It should be called once during application startup.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("app_env", cfg.AppEnv).Msg("configuration loaded")
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DefaultActor == "" {
		return fmt.Errorf("DEFAULT_ACTOR must not be empty")
	}
	u, err := url.Parse(c.OrderService.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid ORDER_SERVICE_URL %q", c.OrderService.URL)
	}
	if c.OrderService.BreakerFailureRatio <= 0 || c.OrderService.BreakerFailureRatio > 1 {
		return fmt.Errorf("ORDER_SERVICE_BREAKER_FAILURE_RATIO must be in (0, 1]")
	}
	return nil
}
