package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Messaging     MessagingConfig     `mapstructure:"messaging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Environment   string              `mapstructure:"environment"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret" validate:"required"`
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration"`
	BCryptCost          int           `mapstructure:"bcrypt_cost" validate:"min=4,max=15"`
	AdminEmail          string        `mapstructure:"admin_email"`
	AdminPassword       string        `mapstructure:"admin_password"`
}

// PaymentConfig holds the Mercado Pago credentials and webhook processing knobs.
type PaymentConfig struct {
	AccessToken            string        `mapstructure:"access_token"`
	APIBaseURL             string        `mapstructure:"api_base_url" validate:"required,url"`
	WebhookURL             string        `mapstructure:"webhook_url"`
	Currency               string        `mapstructure:"currency"`
	RequestTimeout         time.Duration `mapstructure:"request_timeout"`
	WebhookWorkers         int           `mapstructure:"webhook_workers"`
	WebhookQueueSize       int           `mapstructure:"webhook_queue_size"`
	IgnoreStatusDowngrades bool          `mapstructure:"ignore_status_downgrades"`
}

type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type MessagingConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers" validate:"required_if=Enabled true"`
	Topic   string   `mapstructure:"topic"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name" validate:"required_if=Enabled true"`
	SamplingRate float64 `mapstructure:"sampling_rate" validate:"min=0,max=1"`
	JaegerURL    string  `mapstructure:"jaeger_url" validate:"required_if=Enabled true,url"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

const (
	DefaultMercadoPagoBaseURL = "https://api.mercadopago.com"
	DefaultCurrency           = "BRL"
	DefaultGatewayTimeout     = 10 * time.Second
	DefaultJWTSecret          = "dev-secret-change-me"
)

// LoadConfigFromEnv builds the configuration from the variables used by the
// container deployment.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Environment: getEnv("APP_ENV", "production"),
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", 3000),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", postgresSourceFromEnv()),
		},
		Security: SecurityConfig{
			JWTSecret:           getEnv("JWT_SECRET", DefaultJWTSecret),
			AccessTokenDuration: getEnvAsDuration("JWT_TTL", 8*time.Hour),
			BCryptCost:          getEnvAsInt("BCRYPT_COST", 10),
			AdminEmail:          getEnv("ADMIN_EMAIL", ""),
			AdminPassword:       getEnv("ADMIN_PASSWORD", ""),
		},
		Payment: PaymentConfig{
			AccessToken:            getEnv("MERCADOPAGO_ACCESS_TOKEN", ""),
			APIBaseURL:             getEnv("MERCADOPAGO_API_BASE_URL", DefaultMercadoPagoBaseURL),
			WebhookURL:             getEnv("MERCADOPAGO_WEBHOOK_URL", ""),
			Currency:               getEnv("MERCADOPAGO_CURRENCY", DefaultCurrency),
			RequestTimeout:         getEnvAsDuration("MERCADOPAGO_TIMEOUT", DefaultGatewayTimeout),
			WebhookWorkers:         getEnvAsInt("WEBHOOK_WORKERS", 4),
			WebhookQueueSize:       getEnvAsInt("WEBHOOK_QUEUE_SIZE", 100),
			IgnoreStatusDowngrades: getEnvAsBool("MERCADOPAGO_IGNORE_STATUS_DOWNGRADES", false),
		},
		Cache: CacheConfig{
			Enabled:  getEnv("REDIS_ADDR", "") != "",
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("REDIS_TTL", 5*time.Minute),
		},
		Messaging: MessagingConfig{
			Kafka: KafkaConfig{
				Enabled: getEnv("KAFKA_BROKERS", "") != "",
				Brokers: splitNonEmpty(getEnv("KAFKA_BROKERS", "")),
				Topic:   getEnv("KAFKA_PAYMENTS_TOPIC", "social-agro.payments"),
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnvAsBool("METRICS_ENABLED", true),
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Tracing: TracingConfig{
				Enabled:      getEnvAsBool("TRACING_ENABLED", false),
				ServiceName:  getEnv("TRACING_SERVICE_NAME", "social-agro-backend"),
				SamplingRate: getEnvAsFloat("TRACING_SAMPLING_RATE", 1),
				JaegerURL:    getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	return cfg
}

// ApplyDefaults fills optional fields left empty by a config file.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Security.JWTSecret == "" {
		c.Security.JWTSecret = DefaultJWTSecret
	}
	if c.Security.AccessTokenDuration <= 0 {
		c.Security.AccessTokenDuration = 8 * time.Hour
	}
	if c.Security.BCryptCost == 0 {
		c.Security.BCryptCost = 10
	}
	if c.Payment.APIBaseURL == "" {
		c.Payment.APIBaseURL = DefaultMercadoPagoBaseURL
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = DefaultCurrency
	}
	if c.Payment.RequestTimeout <= 0 {
		c.Payment.RequestTimeout = DefaultGatewayTimeout
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Messaging.Kafka.Topic == "" {
		c.Messaging.Kafka.Topic = "social-agro.payments"
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitNonEmpty(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func postgresSourceFromEnv() string {
	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "postgres"), getEnv("POSTGRES_PASSWORD", "")),
		Host:     host + ":" + port,
		Path:     getEnv("POSTGRES_DB", "social_agro"),
		RawQuery: "sslmode=" + getEnv("POSTGRES_SSLMODE", "disable"),
	}
	return u.String()
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Payment.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("payment config: %v", err))
	}

	if c.Cache.Enabled && c.Cache.Addr == "" {
		errs = append(errs, "cache config: addr is required when cache is enabled")
	}

	if c.Messaging.Kafka.Enabled && len(c.Messaging.Kafka.Brokers) == 0 {
		errs = append(errs, "messaging config: kafka brokers are required when kafka is enabled")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *ServerConfig) Origins() []string {
	if c.AllowedOrigins == "" {
		return []string{"*"}
	}
	return splitNonEmpty(c.AllowedOrigins)
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return errors.New("admin_email and admin_password must be set together")
	}
	return nil
}

// HasFixedAdmin reports whether admin login is pinned to the configured credentials.
func (c *SecurityConfig) HasFixedAdmin() bool {
	return c.AdminEmail != "" && c.AdminPassword != ""
}

func (c *PaymentConfig) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("api_base_url is required")
	}
	if _, err := url.ParseRequestURI(c.APIBaseURL); err != nil {
		return fmt.Errorf("invalid api_base_url: %w", err)
	}
	if c.WebhookURL != "" {
		if _, err := url.ParseRequestURI(c.WebhookURL); err != nil {
			return fmt.Errorf("invalid webhook_url: %w", err)
		}
	}
	if c.WebhookQueueSize < 0 || c.WebhookWorkers < 0 {
		return errors.New("webhook_workers and webhook_queue_size cannot be negative")
	}
	return nil
}
