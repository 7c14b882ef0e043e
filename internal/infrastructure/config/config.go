package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override
const EnvPrefix = "COOP"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	JWT       JWTConfig
	Order     OrderConfig
	Event     EventConfig
	Kafka     KafkaConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// IsProduction reports whether the app runs in production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	// RequestTimeout bounds every request handled by the API
	RequestTimeout   time.Duration
	CORSAllowOrigins []string
	TrustedProxies   []string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// JWTConfig holds the settings used to verify bearer tokens
type JWTConfig struct {
	Secret string
	Issuer string
}

// OrderConfig tunes order placement
type OrderConfig struct {
	VATRate             decimal.Decimal
	OperationTimeout    time.Duration
	OrderNumberAttempts int
}

// EventConfig holds outbox relay and event handler settings
type EventConfig struct {
	RelayEnabled     bool
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	StaleAfter       time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	IdempotencyTTL   time.Duration
}

// KafkaConfig holds the event stream settings
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	// Topic receives order events relayed from the outbox
	Topic string
	// NotificationTopic receives buyer notifications
	NotificationTopic string
	WriteTimeout      time.Duration
}

// TelemetryConfig holds OpenTelemetry and profiling configuration
type TelemetryConfig struct {
	Enabled               bool
	CollectorEndpoint     string
	SamplingRatio         float64
	ServiceName           string
	Insecure              bool
	MetricsExportInterval time.Duration
	LogsEnabled           bool
	DBTraceEnabled        bool
	DBSlowQueryThresh     time.Duration
	ProfilingEnabled      bool
	PyroscopeEndpoint     string
}

// Load reads configuration. Priority, highest first:
//  1. environment variables with the COOP_ prefix (COOP_DATABASE_PASSWORD)
//  2. a .env file in the working directory
//  3. config.toml
//  4. built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/coopmarket")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return build(v)
}

func build(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Server: ServerConfig{
			Port:             v.GetString("server.port"),
			ReadTimeout:      v.GetDuration("server.read_timeout"),
			WriteTimeout:     v.GetDuration("server.write_timeout"),
			IdleTimeout:      v.GetDuration("server.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("server.shutdown_timeout"),
			RequestTimeout:   v.GetDuration("server.request_timeout"),
			CORSAllowOrigins: v.GetStringSlice("server.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("server.trusted_proxies"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Order: OrderConfig{
			OperationTimeout:    v.GetDuration("order.operation_timeout"),
			OrderNumberAttempts: v.GetInt("order.order_number_attempts"),
		},
		Event: EventConfig{
			RelayEnabled:     v.GetBool("event.relay_enabled"),
			BatchSize:        v.GetInt("event.batch_size"),
			PollInterval:     v.GetDuration("event.poll_interval"),
			MaxRetries:       v.GetInt("event.max_retries"),
			StaleAfter:       v.GetDuration("event.stale_after"),
			CleanupEnabled:   v.GetBool("event.cleanup_enabled"),
			CleanupRetention: v.GetDuration("event.cleanup_retention"),
			IdempotencyTTL:   v.GetDuration("event.idempotency_ttl"),
		},
		Kafka: KafkaConfig{
			Enabled:           v.GetBool("kafka.enabled"),
			Brokers:           v.GetStringSlice("kafka.brokers"),
			Topic:             v.GetString("kafka.topic"),
			NotificationTopic: v.GetString("kafka.notification_topic"),
			WriteTimeout:      v.GetDuration("kafka.write_timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:               v.GetBool("telemetry.enabled"),
			CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:           v.GetString("telemetry.service_name"),
			Insecure:              v.GetBool("telemetry.insecure"),
			MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),
			LogsEnabled:           v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:        v.GetBool("telemetry.db_trace_enabled"),
			DBSlowQueryThresh:     v.GetDuration("telemetry.db_slow_query_threshold"),
			ProfilingEnabled:      v.GetBool("telemetry.profiling_enabled"),
			PyroscopeEndpoint:     v.GetString("telemetry.pyroscope_endpoint"),
		},
	}

	if raw := strings.TrimSpace(v.GetString("order.vat_rate")); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("order.vat_rate %q is not a decimal: %w", raw, err)
		}
		cfg.Order.VATRate = rate
	}
	// env values arrive as one comma separated string
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.Server.CORSAllowOrigins = splitList(cfg.Server.CORSAllowOrigins)
	cfg.Server.TrustedProxies = splitList(cfg.Server.TrustedProxies)

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "coopmarket-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 10 * time.Second
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "coopmarket"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30 * time.Minute
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "coopmarket"
	}

	if cfg.Order.VATRate.IsZero() {
		cfg.Order.VATRate = decimal.NewFromFloat(0.20)
	}
	if cfg.Order.OperationTimeout == 0 {
		cfg.Order.OperationTimeout = 5 * time.Second
	}
	if cfg.Order.OrderNumberAttempts == 0 {
		cfg.Order.OrderNumberAttempts = 3
	}

	if cfg.Event.BatchSize == 0 {
		cfg.Event.BatchSize = 100
	}
	if cfg.Event.PollInterval == 0 {
		cfg.Event.PollInterval = 2 * time.Second
	}
	if cfg.Event.MaxRetries == 0 {
		cfg.Event.MaxRetries = 5
	}
	if cfg.Event.StaleAfter == 0 {
		cfg.Event.StaleAfter = 5 * time.Minute
	}
	if cfg.Event.CleanupRetention == 0 {
		cfg.Event.CleanupRetention = 7 * 24 * time.Hour
	}
	if cfg.Event.IdempotencyTTL == 0 {
		cfg.Event.IdempotencyTTL = 24 * time.Hour
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "coopmarket.orders"
	}
	if cfg.Kafka.NotificationTopic == "" {
		cfg.Kafka.NotificationTopic = "coopmarket.notifications"
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.PyroscopeEndpoint == "" {
		cfg.Telemetry.PyroscopeEndpoint = "http://localhost:4040"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Order.VATRate.IsNegative() || c.Order.VATRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("order.vat_rate must be in [0, 1), got %s", c.Order.VATRate)
	}
	if c.Order.OrderNumberAttempts < 1 {
		return fmt.Errorf("order.order_number_attempts must be at least 1")
	}
	if c.Event.BatchSize <= 0 {
		return fmt.Errorf("event.batch_size must be positive")
	}
	if c.Kafka.Enabled && c.Kafka.Topic == c.Kafka.NotificationTopic {
		return fmt.Errorf("kafka.topic and kafka.notification_topic must differ")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.IsProduction() {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.ssl_mode cannot be 'disable' in production")
		}
		for _, origin := range c.Server.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("server.cors_allow_origins cannot be '*' in production")
			}
		}
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port of the Redis server
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
