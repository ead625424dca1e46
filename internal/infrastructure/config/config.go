package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Device   DeviceConfig
	Jobs     JobsConfig
	Billing  BillingConfig
	Notify   NotifyConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string `validate:"required"`
	Port            int    `validate:"min=1,max=65535"`
	User            string `validate:"required"`
	Password        string
	DBName          string `validate:"required"`
	SSLMode         string `validate:"oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int    `validate:"min=1"`
	MaxIdleConns    int    `validate:"min=0"`
	ConnMaxLifetime int    // in minutes
	ConnMaxIdleTime int    // in minutes
}

// RedisConfig holds Redis connection settings. Redis backs the distributed
// job key locks; leave Enabled false to fall back to in-process locking.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
	Output string // stdout, stderr, or file path
}

// DeviceConfig holds router API client settings
type DeviceConfig struct {
	DialTimeout    time.Duration
	CommandTimeout time.Duration
}

// JobsConfig holds job runner settings
type JobsConfig struct {
	Workers     int `validate:"min=1"`
	QueueSize   int `validate:"min=1"`
	JobTimeout  time.Duration
	LockTTL     time.Duration
	MaxAttempts int `validate:"min=1"`
}

// BillingConfig holds billing cycle settings
type BillingConfig struct {
	Enabled          bool
	InvoiceCron      string // schedule for the due-invoice sweep
	EnforcementCron  string // schedule for the overdue-enforcement sweep
	ReminderCron     string // schedule for reminder dispatch
	InvoiceLookahead time.Duration
}

// NotifyConfig holds notification channel settings
type NotifyConfig struct {
	Email    EmailConfig
	SMS      SMSConfig
	Telegram TelegramConfig
}

// EmailConfig holds SMTP relay settings
type EmailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMSConfig holds HTTP SMS gateway settings
type SMSConfig struct {
	Enabled    bool
	GatewayURL string
	APIKey     string
	Sender     string
}

// TelegramConfig holds Telegram bot settings
type TelegramConfig struct {
	Enabled bool
	Token   string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with NETBILL_ prefix (e.g., NETBILL_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("NETBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
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
		Device: DeviceConfig{
			DialTimeout:    v.GetDuration("device.dial_timeout"),
			CommandTimeout: v.GetDuration("device.command_timeout"),
		},
		Jobs: JobsConfig{
			Workers:     v.GetInt("jobs.workers"),
			QueueSize:   v.GetInt("jobs.queue_size"),
			JobTimeout:  v.GetDuration("jobs.job_timeout"),
			LockTTL:     v.GetDuration("jobs.lock_ttl"),
			MaxAttempts: v.GetInt("jobs.max_attempts"),
		},
		Billing: BillingConfig{
			Enabled:          v.GetBool("billing.enabled"),
			InvoiceCron:      v.GetString("billing.invoice_cron"),
			EnforcementCron:  v.GetString("billing.enforcement_cron"),
			ReminderCron:     v.GetString("billing.reminder_cron"),
			InvoiceLookahead: v.GetDuration("billing.invoice_lookahead"),
		},
		Notify: NotifyConfig{
			Email: EmailConfig{
				Enabled:  v.GetBool("notify.email.enabled"),
				Host:     v.GetString("notify.email.host"),
				Port:     v.GetInt("notify.email.port"),
				Username: v.GetString("notify.email.username"),
				Password: v.GetString("notify.email.password"),
				From:     v.GetString("notify.email.from"),
			},
			SMS: SMSConfig{
				Enabled:    v.GetBool("notify.sms.enabled"),
				GatewayURL: v.GetString("notify.sms.gateway_url"),
				APIKey:     v.GetString("notify.sms.api_key"),
				Sender:     v.GetString("notify.sms.sender"),
			},
			Telegram: TelegramConfig{
				Enabled: v.GetBool("notify.telegram.enabled"),
				Token:   v.GetString("notify.telegram.token"),
			},
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "netbill"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
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
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "netbill"
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
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
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
	if cfg.Device.DialTimeout == 0 {
		cfg.Device.DialTimeout = 10 * time.Second
	}
	if cfg.Device.CommandTimeout == 0 {
		cfg.Device.CommandTimeout = 15 * time.Second
	}
	if cfg.Jobs.Workers == 0 {
		cfg.Jobs.Workers = 4
	}
	if cfg.Jobs.QueueSize == 0 {
		cfg.Jobs.QueueSize = 256
	}
	if cfg.Jobs.JobTimeout == 0 {
		cfg.Jobs.JobTimeout = 5 * time.Minute
	}
	if cfg.Jobs.LockTTL == 0 {
		cfg.Jobs.LockTTL = 15 * time.Minute
	}
	if cfg.Jobs.MaxAttempts == 0 {
		cfg.Jobs.MaxAttempts = 3
	}
	if cfg.Billing.InvoiceCron == "" {
		cfg.Billing.InvoiceCron = "0 2 * * *"
	}
	if cfg.Billing.EnforcementCron == "" {
		cfg.Billing.EnforcementCron = "30 2 * * *"
	}
	if cfg.Billing.ReminderCron == "" {
		cfg.Billing.ReminderCron = "0 9 * * *"
	}
	if cfg.Billing.InvoiceLookahead == 0 {
		cfg.Billing.InvoiceLookahead = 7 * 24 * time.Hour
	}
	if cfg.Notify.Email.Port == 0 {
		cfg.Notify.Email.Port = 587
	}
}

// validate performs validation on the configuration. Field-level constraints
// are declared as validator struct tags; cross-field and conditional rules
// follow below.
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Notify.Email.Enabled {
		if c.Notify.Email.Host == "" {
			return fmt.Errorf("notify.email.host is required when email is enabled")
		}
		if c.Notify.Email.From == "" {
			return fmt.Errorf("notify.email.from is required when email is enabled")
		}
	}
	if c.Notify.SMS.Enabled && c.Notify.SMS.GatewayURL == "" {
		return fmt.Errorf("notify.sms.gateway_url is required when sms is enabled")
	}
	if c.Notify.Telegram.Enabled && c.Notify.Telegram.Token == "" {
		return fmt.Errorf("notify.telegram.token is required when telegram is enabled")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
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
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis address in host:port form
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
