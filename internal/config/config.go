// Package config loads the assistant configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/fentz26/concierge/internal/log"
)

var (
	// ErrMissingEnv is returned when a required variable is unset or empty.
	ErrMissingEnv = errors.New("missing required environment variable")
	// ErrInvalidEnv is returned when a variable cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment variable")
)

type Config struct {
	App       AppConfig
	AI        AIConfig
	Memory    MemoryConfig
	Auth      AuthConfig
	Services  ServicesConfig
	Store     StoreConfig
	Telemetry TelemetryConfig
	Reminders RemindersConfig
}

type AppConfig struct {
	Env       string
	Port      int
	LogLevel  string
	LogFormat string
}

type AIConfig struct {
	APIKey      string
	APIEndpoint string
	Model       string
}

type MemoryConfig struct {
	StoragePath string
	VectorDBURL string
}

type AuthConfig struct {
	JWTSecret string
	JWTExpiry time.Duration
}

// ServicesConfig holds optional third-party credentials; empty means unused.
type ServicesConfig struct {
	WeatherAPIKey        string
	CalendarClientID     string
	CalendarClientSecret string
}

type StoreConfig struct {
	DBPath string
}

type TelemetryConfig struct {
	OTLPEndpoint string
	Insecure     bool
}

// RemindersConfig controls the reminder scheduler. An empty Command logs
// reminders instead of showing a desktop notification.
type RemindersConfig struct {
	Interval  time.Duration
	Lookahead time.Duration
	Command   string
}

// Default returns the values used for every optional variable.
func Default() Config {
	return Config{
		App:       AppConfig{Env: "development", Port: 7466, LogLevel: "info", LogFormat: "text"},
		AI:        AIConfig{Model: "gpt-4"},
		Memory:    MemoryConfig{StoragePath: "./data/memory", VectorDBURL: "http://localhost:8080"},
		Auth:      AuthConfig{JWTExpiry: 24 * time.Hour},
		Reminders: RemindersConfig{Interval: time.Minute, Lookahead: 24 * time.Hour},
	}
}

// LoadEnvFile loads .env.<env> from dir into the process environment.
// Variables already set win. A missing file is not an error.
func LoadEnvFile(dir, env string) (string, error) {
	path := filepath.Join(dir, ".env."+env)
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		return path, fmt.Errorf("load %s: %w", path, err)
	}
	return path, nil
}

// Load reads the configuration from the environment. Defaults are logged at
// warning level. All missing or invalid variables are reported together.
func Load(logger log.Logger) (Config, error) {
	if logger == nil {
		logger = log.Noop
	}
	l := loader{logger: logger.WithValues(log.Kv{"svc": "config"})}
	def := Default()

	var cfg Config
	cfg.App.Env = l.str("APP_ENV", def.App.Env)
	cfg.App.Port = l.integer("PORT", def.App.Port)
	cfg.App.LogLevel = l.str("LOG_LEVEL", def.App.LogLevel)
	cfg.App.LogFormat = l.str("LOG_FORMAT", def.App.LogFormat)

	cfg.AI.APIKey = l.required("AI_API_KEY")
	cfg.AI.APIEndpoint = l.required("AI_API_ENDPOINT")
	cfg.AI.Model = l.str("AI_MODEL", def.AI.Model)

	cfg.Memory.StoragePath = l.str("MEMORY_STORAGE_PATH", def.Memory.StoragePath)
	cfg.Memory.VectorDBURL = l.str("VECTOR_DB_URL", def.Memory.VectorDBURL)

	cfg.Auth.JWTSecret = l.required("JWT_SECRET")
	cfg.Auth.JWTExpiry = l.duration("JWT_EXPIRY", def.Auth.JWTExpiry)

	cfg.Services.WeatherAPIKey = os.Getenv("WEATHER_API_KEY")
	cfg.Services.CalendarClientID = os.Getenv("CALENDAR_CLIENT_ID")
	cfg.Services.CalendarClientSecret = os.Getenv("CALENDAR_CLIENT_SECRET")

	cfg.Store.DBPath = l.str("DB_PATH", filepath.Join(cfg.Memory.StoragePath, "concierge.db"))

	cfg.Telemetry.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.Telemetry.Insecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"

	cfg.Reminders.Interval = l.duration("REMINDER_INTERVAL", def.Reminders.Interval)
	cfg.Reminders.Lookahead = l.duration("REMINDER_LOOKAHEAD", def.Reminders.Lookahead)
	cfg.Reminders.Command = os.Getenv("REMINDER_COMMAND")

	if err := errors.Join(l.errs...); err != nil {
		return cfg, err
	}
	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		return cfg, fmt.Errorf("PORT %d out of range: %w", cfg.App.Port, ErrInvalidEnv)
	}
	if cfg.Reminders.Interval <= 0 {
		return cfg, fmt.Errorf("REMINDER_INTERVAL %s must be positive: %w", cfg.Reminders.Interval, ErrInvalidEnv)
	}
	return cfg, nil
}

type loader struct {
	logger log.Logger
	errs   []error
}

func (l *loader) str(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	l.logger.Warningf("%s is not set, using default %q", key, def)
	return def
}

func (l *loader) required(key string) string {
	v := os.Getenv(key)
	if v == "" {
		l.logger.Errorf("required %s is not set", key)
		l.errs = append(l.errs, fmt.Errorf("%s: %w", key, ErrMissingEnv))
	}
	return v
}

func (l *loader) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		l.logger.Warningf("%s is not set, using default %d", key, def)
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s=%q is not an integer: %w", key, v, ErrInvalidEnv))
		return def
	}
	return n
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		l.logger.Warningf("%s is not set, using default %s", key, def)
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("%s=%q is not a duration: %w", key, v, ErrInvalidEnv))
		return def
	}
	return d
}
