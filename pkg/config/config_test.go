package config

import (
	"testing"
	"time"

	"github.com/platinummonkey/civicbase/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STR", "custom")
	t.Setenv("TEST_BOOL_TRUE", "TRUE")
	t.Setenv("TEST_BOOL_ONE", "1")
	t.Setenv("TEST_BOOL_FALSE", "no")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_INT_BAD", "forty")
	t.Setenv("TEST_INT64", "1048576")
	t.Setenv("TEST_DURATION", "90s")
	t.Setenv("TEST_DURATION_BAD", "soon")
	t.Setenv("TEST_FLOAT", "0.25")

	assert.Equal(t, "custom", getEnv("TEST_STR", "default"))
	assert.Equal(t, "default", getEnv("TEST_STR_UNSET", "default"))

	assert.True(t, getEnvBool("TEST_BOOL_TRUE", false))
	assert.True(t, getEnvBool("TEST_BOOL_ONE", false))
	assert.False(t, getEnvBool("TEST_BOOL_FALSE", true))
	assert.True(t, getEnvBool("TEST_BOOL_UNSET", true))

	assert.Equal(t, 42, getEnvInt("TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("TEST_INT_BAD", 1))
	assert.Equal(t, int64(1048576), getEnvInt64("TEST_INT64", 0))

	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("TEST_DURATION_BAD", time.Second))
	assert.Equal(t, 0.25, getEnvFloat("TEST_FLOAT", 1))
	assert.Equal(t, 1.0, getEnvFloat("TEST_FLOAT_UNSET", 1))
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]observability.LogLevel{
		"debug":   observability.DebugLevel,
		"INFO":    observability.InfoLevel,
		"warn":    observability.WarnLevel,
		"warning": observability.WarnLevel,
		"error":   observability.ErrorLevel,
		"verbose": observability.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLogLevel(in), in)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Addr())
	assert.Equal(t, "*", cfg.Server.CORSOrigins)
	assert.Equal(t, DefaultDatabaseURL, cfg.Database.URL)
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 480*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "SUPER_ADMIN", cfg.Auth.SuperuserProfile)
	assert.Equal(t, 10, cfg.Auth.MaxLoginAttempts)
	assert.False(t, cfg.Auth.ResetAttemptsOnLogin)
	assert.Equal(t, 20, cfg.Auth.LoginRateLimit)
	assert.Equal(t, "admin", cfg.Admin.UserName)
	assert.Equal(t, "gmail", cfg.Mail.Service)
	assert.Equal(t, "1.0.0", cfg.Audit.AppVersion)
	assert.Empty(t, cfg.Audit.File)
	assert.Equal(t, "@every 5m", cfg.Jobs.StatsSchedule)
	assert.False(t, cfg.Observability.OTelEnabled)
	assert.Equal(t, 1.0, cfg.Observability.OTelSampleRatio)

	assert.Equal(t, []string{"DATABASE_URL", "JWT_SECRET", "MAIL_PASSWORD", "ADMIN_PASSWORD"}, cfg.InsecureDefaults())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "postgres://db/prod")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "12h")
	t.Setenv("MAX_LOGIN_ATTEMPTS", "5")
	t.Setenv("RESET_ATTEMPTS_ON_LOGIN", "true")
	t.Setenv("MAIL_PASSWORD", "mail")
	t.Setenv("ADMIN_PASSWORD", "Adm1n!")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("AUDIT_FILE", "/var/log/civicbase/audit.log")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 5, cfg.Auth.MaxLoginAttempts)
	assert.True(t, cfg.Auth.ResetAttemptsOnLogin)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, "/var/log/civicbase/audit.log", cfg.Audit.File)
	assert.Empty(t, cfg.InsecureDefaults())
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 3000},
			Database: DatabaseConfig{URL: DefaultDatabaseURL},
			Auth: AuthConfig{
				JWTSecret:        "secret",
				TokenTTL:         time.Hour,
				MaxLoginAttempts: 10,
				LoginRateLimit:   20,
				LoginRateWindow:  time.Minute,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server port must be positive"},
		{name: "negative port", mutate: func(c *Config) { c.Server.Port = -1 }, wantErr: "server port must be positive"},
		{name: "no database", mutate: func(c *Config) { c.Database.URL = "" }, wantErr: "database URL is required"},
		{name: "no secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "JWT secret is required"},
		{name: "zero ttl", mutate: func(c *Config) { c.Auth.TokenTTL = 0 }, wantErr: "token TTL must be positive"},
		{name: "no attempts", mutate: func(c *Config) { c.Auth.MaxLoginAttempts = 0 }, wantErr: "max login attempts must be at least 1"},
		{name: "no rate limit", mutate: func(c *Config) { c.Auth.LoginRateLimit = 0 }, wantErr: "login rate limit"},
		{
			name:    "otel without endpoint",
			mutate:  func(c *Config) { c.Observability = ObservabilityConfig{OTelEnabled: true, OTelServiceName: "x"} },
			wantErr: "OpenTelemetry endpoint is required",
		},
		{
			name:    "otel without service name",
			mutate:  func(c *Config) { c.Observability = ObservabilityConfig{OTelEnabled: true, OTelEndpoint: "x:4317"} },
			wantErr: "OpenTelemetry service name is required",
		},
		{
			name: "otel sample ratio out of range",
			mutate: func(c *Config) {
				c.Observability = ObservabilityConfig{OTelEnabled: true, OTelEndpoint: "x:4317", OTelServiceName: "x", OTelSampleRatio: 1.5}
			},
			wantErr: "sample ratio must be between 0 and 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("PORT", "-5")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}
