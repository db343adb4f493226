package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"APP_ENV", "PORT", "LOG_LEVEL", "LOG_FORMAT",
	"AI_API_KEY", "AI_API_ENDPOINT", "AI_MODEL",
	"MEMORY_STORAGE_PATH", "VECTOR_DB_URL",
	"JWT_SECRET", "JWT_EXPIRY",
	"WEATHER_API_KEY", "CALENDAR_CLIENT_ID", "CALENDAR_CLIENT_SECRET",
	"DB_PATH", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE",
	"REMINDER_INTERVAL", "REMINDER_LOOKAHEAD", "REMINDER_COMMAND",
}

// setEnv clears every known key and then applies env.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func requiredEnv() map[string]string {
	return map[string]string{
		"AI_API_KEY":      "key",
		"AI_API_ENDPOINT": "https://ai.example.com",
		"JWT_SECRET":      "secret",
	}
}

func TestLoad(t *testing.T) {
	tests := map[string]struct {
		env    map[string]string
		expCfg func() Config
		expErr error
	}{
		"Only required variables should fall back to defaults.": {
			env: requiredEnv(),
			expCfg: func() Config {
				c := Default()
				c.AI.APIKey = "key"
				c.AI.APIEndpoint = "https://ai.example.com"
				c.Auth.JWTSecret = "secret"
				c.Store.DBPath = filepath.Join("./data/memory", "concierge.db")
				return c
			},
		},
		"Set variables should override defaults.": {
			env: func() map[string]string {
				e := requiredEnv()
				e["APP_ENV"] = "production"
				e["PORT"] = "9000"
				e["LOG_LEVEL"] = "debug"
				e["AI_MODEL"] = "claude"
				e["MEMORY_STORAGE_PATH"] = "/var/lib/concierge"
				e["JWT_EXPIRY"] = "2h"
				e["WEATHER_API_KEY"] = "w"
				e["OTEL_EXPORTER_OTLP_ENDPOINT"] = "localhost:4318"
				e["OTEL_EXPORTER_OTLP_INSECURE"] = "true"
				e["REMINDER_INTERVAL"] = "30s"
				e["REMINDER_COMMAND"] = "notify-send"
				return e
			}(),
			expCfg: func() Config {
				c := Default()
				c.App.Env = "production"
				c.App.Port = 9000
				c.App.LogLevel = "debug"
				c.AI = AIConfig{APIKey: "key", APIEndpoint: "https://ai.example.com", Model: "claude"}
				c.Memory.StoragePath = "/var/lib/concierge"
				c.Auth = AuthConfig{JWTSecret: "secret", JWTExpiry: 2 * time.Hour}
				c.Services.WeatherAPIKey = "w"
				c.Store.DBPath = filepath.Join("/var/lib/concierge", "concierge.db")
				c.Telemetry = TelemetryConfig{OTLPEndpoint: "localhost:4318", Insecure: true}
				c.Reminders = RemindersConfig{Interval: 30 * time.Second, Lookahead: 24 * time.Hour, Command: "notify-send"}
				return c
			},
		},
		"DB_PATH should win over the storage path.": {
			env: func() map[string]string {
				e := requiredEnv()
				e["DB_PATH"] = ":memory:"
				return e
			}(),
			expCfg: func() Config {
				c := Default()
				c.AI.APIKey = "key"
				c.AI.APIEndpoint = "https://ai.example.com"
				c.Auth.JWTSecret = "secret"
				c.Store.DBPath = ":memory:"
				return c
			},
		},
		"Missing required variables should fail.": {
			env:    map[string]string{"AI_API_KEY": "key"},
			expErr: ErrMissingEnv,
		},
		"A non integer port should fail.": {
			env: func() map[string]string {
				e := requiredEnv()
				e["PORT"] = "abc"
				return e
			}(),
			expErr: ErrInvalidEnv,
		},
		"An out of range port should fail.": {
			env: func() map[string]string {
				e := requiredEnv()
				e["PORT"] = "70000"
				return e
			}(),
			expErr: ErrInvalidEnv,
		},
		"An invalid expiry should fail.": {
			env: func() map[string]string {
				e := requiredEnv()
				e["JWT_EXPIRY"] = "one day"
				return e
			}(),
			expErr: ErrInvalidEnv,
		},
		"A zero reminder interval should fail.": {
			env: func() map[string]string {
				e := requiredEnv()
				e["REMINDER_INTERVAL"] = "0s"
				return e
			}(),
			expErr: ErrInvalidEnv,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			setEnv(t, test.env)

			cfg, err := Load(nil)

			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expCfg(), cfg)
		})
	}
}

func TestLoadReportsEveryMissingVariable(t *testing.T) {
	setEnv(t, nil)

	_, err := Load(nil)

	require.ErrorIs(t, err, ErrMissingEnv)
	for _, k := range []string{"AI_API_KEY", "AI_API_ENDPOINT", "JWT_SECRET"} {
		assert.Contains(t, err.Error(), k)
	}
}

func TestLoadEnvFile(t *testing.T) {
	const key = "CONCIERGE_ENV_FILE_PROBE"
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.test"), []byte(key+"=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv(key) })

	_, err := LoadEnvFile(dir, "test")
	require.NoError(t, err)

	assert.Equal(t, "from-file", os.Getenv(key))
}

func TestLoadEnvFileMissing(t *testing.T) {
	_, err := LoadEnvFile(t.TempDir(), "nope")
	assert.NoError(t, err)
}
