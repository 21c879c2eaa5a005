// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Notifier channels.
const (
	ChannelWhatsApp = "whatsapp"
	ChannelSMS      = "sms"
	ChannelDev      = "dev"
)

// Storage drivers.
const (
	StorageFS   = "fs"
	StorageHTTP = "http"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address of the intake HTTP API.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr serves the standard gRPC health service only.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// Env is the application environment; "production" forbids the dev notifier and requires a token secret.
	Env string `mapstructure:"APP_ENV"`

	// DatabaseURL is the Postgres DSN. Empty selects in-memory repositories (development only).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int    `mapstructure:"DB_MAX_CONNS"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// SessionTokenSecret signs session bearer tokens (HS256, at least 32 bytes).
	SessionTokenSecret string        `mapstructure:"SESSION_TOKEN_SECRET"`
	SessionTTL         time.Duration `mapstructure:"SESSION_TTL"`

	OTPCooldown      time.Duration `mapstructure:"OTP_COOLDOWN"`
	OTPTTL           time.Duration `mapstructure:"OTP_TTL"`
	OTPMaxAttempts   int           `mapstructure:"OTP_MAX_ATTEMPTS"`
	OTPDigits        int           `mapstructure:"OTP_DIGITS"`
	PhoneCountryCode string        `mapstructure:"PHONE_COUNTRY_CODE"`

	// NotifyChannel selects how codes are delivered: whatsapp, sms or dev.
	NotifyChannel        string        `mapstructure:"NOTIFY_CHANNEL"`
	WhatsAppWebhookURL   string        `mapstructure:"WHATSAPP_WEBHOOK_URL"`
	WhatsAppWebhookToken string        `mapstructure:"WHATSAPP_WEBHOOK_TOKEN"`
	SMSLocalAPIKey       string        `mapstructure:"SMS_LOCAL_API_KEY"`
	SMSLocalSender       string        `mapstructure:"SMS_LOCAL_SENDER"`
	SMSLocalBaseURL      string        `mapstructure:"SMS_LOCAL_BASE_URL"`
	NotifyTimeout        time.Duration `mapstructure:"NOTIFY_TIMEOUT"`

	// StorageDriver selects the resume store: fs (afero on local disk) or http (object storage API).
	StorageDriver        string `mapstructure:"STORAGE_DRIVER"`
	StorageFSRoot        string `mapstructure:"STORAGE_FS_ROOT"`
	StoragePublicBaseURL string `mapstructure:"STORAGE_PUBLIC_BASE_URL"`
	StorageHTTPURL       string `mapstructure:"STORAGE_HTTP_URL"`
	StorageHTTPBucket    string `mapstructure:"STORAGE_HTTP_BUCKET"`
	StorageHTTPKey       string `mapstructure:"STORAGE_HTTP_KEY"`

	// OTLPEndpoint enables OTLP export when set (host:port or URL).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// KafkaBrokers is a comma-separated broker list; empty disables event publishing to Kafka.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"INTAKE_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group of the event archive worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// LokiURL is where the worker archives intake events (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`

	// CORSAllowedOrigins is a comma-separated origin list for the browser form. Empty allows all
	// origins outside production.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("SESSION_TOKEN_SECRET", "")
	v.SetDefault("SESSION_TTL", "2h")
	v.SetDefault("OTP_COOLDOWN", "30s")
	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("OTP_DIGITS", 4)
	v.SetDefault("PHONE_COUNTRY_CODE", "55")
	v.SetDefault("NOTIFY_CHANNEL", ChannelDev)
	v.SetDefault("WHATSAPP_WEBHOOK_URL", "")
	v.SetDefault("WHATSAPP_WEBHOOK_TOKEN", "")
	v.SetDefault("SMS_LOCAL_API_KEY", "")
	v.SetDefault("SMS_LOCAL_SENDER", "")
	v.SetDefault("SMS_LOCAL_BASE_URL", "https://www.smslocal.com/dev/bulkV2")
	v.SetDefault("NOTIFY_TIMEOUT", "15s")
	v.SetDefault("STORAGE_DRIVER", StorageFS)
	v.SetDefault("STORAGE_FS_ROOT", "./data/resumes")
	v.SetDefault("STORAGE_PUBLIC_BASE_URL", "http://localhost:8080/files")
	v.SetDefault("STORAGE_HTTP_URL", "")
	v.SetDefault("STORAGE_HTTP_BUCKET", "resumes")
	v.SetDefault("STORAGE_HTTP_KEY", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("INTAKE_KAFKA_TOPIC", "intake-events")
	v.SetDefault("KAFKA_GROUP_ID", "intake-events-archiver")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}
	if c.OTPDigits < 4 || c.OTPDigits > 8 {
		return errors.New("config: OTP_DIGITS must be between 4 and 8")
	}
	if c.OTPMaxAttempts < 1 {
		return errors.New("config: OTP_MAX_ATTEMPTS must be positive")
	}
	if c.OTPCooldown <= 0 || c.OTPTTL <= 0 || c.SessionTTL <= 0 || c.NotifyTimeout <= 0 {
		return errors.New("config: OTP_COOLDOWN, OTP_TTL, SESSION_TTL and NOTIFY_TIMEOUT must be positive durations")
	}
	if len(c.PhoneCountryCode) < 2 || strings.Trim(c.PhoneCountryCode, "0123456789") != "" {
		return errors.New("config: PHONE_COUNTRY_CODE must be at least two digits")
	}

	switch c.NotifyChannel {
	case ChannelDev:
		if c.IsProduction() {
			return errors.New("config: NOTIFY_CHANNEL=dev must not be used when APP_ENV=production")
		}
	case ChannelWhatsApp:
		if c.WhatsAppWebhookURL == "" {
			return errors.New("config: WHATSAPP_WEBHOOK_URL is required for NOTIFY_CHANNEL=whatsapp")
		}
	case ChannelSMS:
		if c.SMSLocalAPIKey == "" {
			return errors.New("config: SMS_LOCAL_API_KEY is required for NOTIFY_CHANNEL=sms")
		}
	default:
		return fmt.Errorf("config: unknown NOTIFY_CHANNEL %q", c.NotifyChannel)
	}

	switch c.StorageDriver {
	case StorageFS:
		if c.StorageFSRoot == "" {
			return errors.New("config: STORAGE_FS_ROOT is required for STORAGE_DRIVER=fs")
		}
	case StorageHTTP:
		if c.StorageHTTPURL == "" || c.StorageHTTPBucket == "" {
			return errors.New("config: STORAGE_HTTP_URL and STORAGE_HTTP_BUCKET are required for STORAGE_DRIVER=http")
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.IsProduction() {
		if len(c.SessionTokenSecret) < 32 {
			return errors.New("config: SESSION_TOKEN_SECRET of at least 32 bytes is required when APP_ENV=production")
		}
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required when APP_ENV=production")
		}
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
func (c *Config) KafkaBrokersList() []string {
	return splitList(c.KafkaBrokers)
}

// CORSOrigins returns the allowed origins from the comma-separated config.
func (c *Config) CORSOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
