package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env           string              `mapstructure:"env" validate:"omitempty,oneof=development staging production test"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Mail          MailConfig          `mapstructure:"mail"`
	Notification  NotificationConfig  `mapstructure:"notification"`
	Expense       ExpenseConfig       `mapstructure:"expense"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source" validate:"required"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret" validate:"required,min=32"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret" validate:"required,min=32"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" validate:"required,min=1m,max=1h"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" validate:"required,min=1h"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
	ResetCodeTTL         time.Duration `mapstructure:"reset_code_ttl" validate:"required,min=1m,max=1h"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// RedisConfig is optional; an empty Addr selects in-process locking.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"min=0"`
	LockTTL  time.Duration `mapstructure:"lock_ttl" validate:"required,min=1s"`
	LockWait time.Duration `mapstructure:"lock_wait" validate:"required,min=100ms"`
}

type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port     int    `mapstructure:"port" validate:"required_if=Enabled true,max=65535"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from" validate:"required_if=Enabled true"`
}

type NotificationConfig struct {
	Workers   int `mapstructure:"workers" validate:"required,min=1,max=64"`
	QueueSize int `mapstructure:"queue_size" validate:"required,min=1"`
}

type ExpenseConfig struct {
	// EnforceApprovalLimit rejects decisions on totals above the approver's role limit.
	EnforceApprovalLimit bool `mapstructure:"enforce_approval_limit"`
	// RecomputeTotals replaces client totals with the item sum at the HTTP boundary.
	RecomputeTotals bool `mapstructure:"recompute_totals"`
}

// DefaultConfig is the base every loader decodes on top of.
func DefaultConfig() *Config {
	return &Config{
		Env: "development",
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
			WriteTimeout:      15 * time.Second,
			RequestTimeout:    10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Security: SecurityConfig{
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 7 * 24 * time.Hour,
			BCryptCost:           12,
			ResetCodeTTL:         10 * time.Minute,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
		Redis: RedisConfig{
			LockTTL:  10 * time.Second,
			LockWait: 5 * time.Second,
		},
		Mail: MailConfig{Port: 587},
		Notification: NotificationConfig{
			Workers:   4,
			QueueSize: 100,
		},
		Expense: ExpenseConfig{
			EnforceApprovalLimit: true,
		},
	}
}

// LoadConfigFromEnv builds the configuration for container deployments where no
// config file is mounted.
func LoadConfigFromEnv() *Config {
	cfg := DefaultConfig()

	cfg.Env = getEnv("APP_ENV", cfg.Env)

	cfg.Server.Port = getEnvAsInt("HTTP_PORT", cfg.Server.Port)
	cfg.Server.BaseURL = getEnv("BASE_URL", cfg.Server.BaseURL)
	cfg.Server.AllowedOrigins = getEnv("ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)
	cfg.Server.ReadTimeout = getEnvAsDuration("HTTP_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvAsDuration("HTTP_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.RequestTimeout = getEnvAsDuration("HTTP_REQUEST_TIMEOUT", cfg.Server.RequestTimeout)

	cfg.Database.Source = getEnv("DATABASE_URL", cfg.Database.Source)
	cfg.Database.MaxOpenConns = getEnvAsInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = getEnvAsInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)

	cfg.Security.AccessTokenSecret = getEnv("JWT_ACCESS_SECRET", cfg.Security.AccessTokenSecret)
	cfg.Security.RefreshTokenSecret = getEnv("JWT_REFRESH_SECRET", cfg.Security.RefreshTokenSecret)
	cfg.Security.AccessTokenDuration = getEnvAsDuration("JWT_ACCESS_TTL", cfg.Security.AccessTokenDuration)
	cfg.Security.RefreshTokenDuration = getEnvAsDuration("JWT_REFRESH_TTL", cfg.Security.RefreshTokenDuration)
	cfg.Security.BCryptCost = getEnvAsInt("BCRYPT_COST", cfg.Security.BCryptCost)
	cfg.Security.ResetCodeTTL = getEnvAsDuration("RESET_CODE_TTL", cfg.Security.ResetCodeTTL)

	cfg.Observability.Metrics.Enabled = getEnvAsBool("METRICS_ENABLED", cfg.Observability.Metrics.Enabled)
	cfg.Observability.Metrics.Path = getEnv("METRICS_PATH", cfg.Observability.Metrics.Path)
	cfg.Observability.Logging.Level = getEnv("LOG_LEVEL", cfg.Observability.Logging.Level)
	cfg.Observability.Logging.Format = getEnv("LOG_FORMAT", "json")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)

	cfg.Mail.Enabled = getEnvAsBool("MAIL_ENABLED", cfg.Mail.Enabled)
	cfg.Mail.Host = getEnv("SMTP_HOST", cfg.Mail.Host)
	cfg.Mail.Port = getEnvAsInt("SMTP_PORT", cfg.Mail.Port)
	cfg.Mail.Username = getEnv("SMTP_USERNAME", cfg.Mail.Username)
	cfg.Mail.Password = getEnv("SMTP_PASSWORD", cfg.Mail.Password)
	cfg.Mail.From = getEnv("SMTP_FROM", cfg.Mail.From)

	cfg.Notification.Workers = getEnvAsInt("NOTIFICATION_WORKERS", cfg.Notification.Workers)
	cfg.Notification.QueueSize = getEnvAsInt("NOTIFICATION_QUEUE_SIZE", cfg.Notification.QueueSize)

	cfg.Expense.EnforceApprovalLimit = getEnvAsBool("EXPENSE_ENFORCE_APPROVAL_LIMIT", cfg.Expense.EnforceApprovalLimit)
	cfg.Expense.RecomputeTotals = getEnvAsBool("EXPENSE_RECOMPUTE_TOTALS", cfg.Expense.RecomputeTotals)

	return cfg
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
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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

// ----------------- VALIDATION -----------------

var configValidator = validator.New()

func (c *Config) Validate() error {
	var errs []string

	if err := configValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
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

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *SecurityConfig) Validate() error {
	if c.AccessTokenSecret != "" && c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("access and refresh token secrets must differ")
	}
	if c.RefreshTokenDuration <= c.AccessTokenDuration {
		return errors.New("refresh_token_duration must exceed access_token_duration")
	}
	return nil
}

// AllowedOriginList splits the comma separated origins setting.
func (c *ServerConfig) AllowedOriginList() []string {
	if strings.TrimSpace(c.AllowedOrigins) == "" {
		return nil
	}
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
