package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// unsetEnv clears key for the duration of the test
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DORMO_ENVIRONMENT", "development")

	cfg, err := Load(nil)
	require.NoError(t, err)

	want := Default()
	want.Environment = EnvDevelopment
	assert.Equal(t, &want, cfg)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DORMO_SESSION__SECRET", testSecret)
	t.Setenv("DORMO_HTTP__PORT", "9090")
	t.Setenv("DORMO_HTTP__REQUEST_TIMEOUT", "3s")
	t.Setenv("DORMO_RATELIMIT__WINDOW", "30s")
	t.Setenv("DORMO_RATELIMIT__PERMIT_LIMIT", "5")
	t.Setenv("DORMO_SESSION__COOKIE_NAME", "sid")
	t.Setenv("DORMO_SESSION__COOKIE_SECURE", "false")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Environment)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 3*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, 5, cfg.RateLimit.PermitLimit)
	assert.Equal(t, 10, cfg.RateLimit.QueueLimit, "unset keys keep their defaults")
	assert.Equal(t, "sid", cfg.Session.CookieName)
	assert.False(t, cfg.SecureCookies())
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "dormo.yaml", strings.Join([]string{
		"environment: development",
		"storage:",
		"  type: redis",
		"  redis_url: redis://cache:6379",
		"ratelimit:",
		"  enabled: false",
	}, "\n"))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse([]string{"--config", path}))

	cfg, err := Load(flags)
	require.NoError(t, err)

	assert.Equal(t, StorageRedis, cfg.Storage.Type)
	assert.Equal(t, "redis://cache:6379", cfg.Storage.RedisURL)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "dormo.yaml", "environment: development\nhttp:\n  port: 7000\n  host: file-host\n")
	t.Setenv("DORMO_HTTP__PORT", "7001")
	t.Setenv("DORMO_HTTP__HOST", "env-host")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse([]string{"--config", path, "--port", "7002"}))

	cfg, err := Load(flags)
	require.NoError(t, err)

	assert.Equal(t, 7002, cfg.HTTP.Port, "flag beats env")
	assert.Equal(t, "env-host", cfg.HTTP.Host, "env beats file")
}

func TestLoad_UnchangedFlagsDoNotOverride(t *testing.T) {
	t.Setenv("DORMO_ENVIRONMENT", "development")
	t.Setenv("DORMO_STORAGE__TYPE", "memory")
	t.Setenv("DORMO_LOG__FORMAT", "text")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(flags)
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoad_EnvFile(t *testing.T) {
	unsetEnv(t, "DORMO_ENVIRONMENT")
	unsetEnv(t, "DORMO_LOG__LEVEL")
	path := writeFile(t, ".env", "DORMO_ENVIRONMENT=development\nDORMO_LOG__LEVEL=debug\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse([]string{"--env-file", path}))

	cfg, err := Load(flags)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv("DORMO_ENVIRONMENT", "development")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}))

	_, err := Load(flags)
	require.NoError(t, err)
}

func TestLoad_MissingConfigFileFails(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}))

	_, err := Load(flags)
	require.Error(t, err)
}

func TestLoad_ProductionNeedsSecretToValidate(t *testing.T) {
	unsetEnv(t, "DORMO_SESSION__SECRET")
	t.Setenv("DORMO_ENVIRONMENT", "production")

	cfg, err := Load(nil)
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session.secret")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "production with secret",
			modify: func(c *Config) { c.Session.Secret = testSecret },
		},
		{
			name:    "production without secret",
			modify:  func(c *Config) {},
			wantErr: "session.secret is required",
		},
		{
			name: "development without secret",
			modify: func(c *Config) {
				c.Environment = EnvDevelopment
			},
		},
		{
			name: "short secret",
			modify: func(c *Config) {
				c.Environment = EnvDevelopment
				c.Session.Secret = "short"
			},
			wantErr: "at least 32 bytes",
		},
		{
			name: "unknown storage",
			modify: func(c *Config) {
				c.Session.Secret = testSecret
				c.Storage.Type = "mongo"
			},
			wantErr: "storage.type",
		},
		{
			name: "redis without url",
			modify: func(c *Config) {
				c.Session.Secret = testSecret
				c.Storage.Type = StorageRedis
			},
			wantErr: "storage.redis_url",
		},
		{
			name: "postgres without dsn",
			modify: func(c *Config) {
				c.Session.Secret = testSecret
				c.Storage.Type = StoragePostgres
			},
			wantErr: "storage.postgres_dsn",
		},
		{
			name: "hash cost too low",
			modify: func(c *Config) {
				c.Session.Secret = testSecret
				c.Auth.HashCost = 1
			},
			wantErr: "auth.hash_cost",
		},
		{
			name: "zero permit limit",
			modify: func(c *Config) {
				c.Session.Secret = testSecret
				c.RateLimit.PermitLimit = 0
			},
			wantErr: "ratelimit.permit_limit",
		},
		{
			name: "queue wait outlasts write timeout",
			modify: func(c *Config) {
				c.Session.Secret = testSecret
				c.HTTP.RequestTimeout = 0
			},
			wantErr: "http.write_timeout",
		},
		{
			name: "request timeout as long as write timeout",
			modify: func(c *Config) {
				c.Session.Secret = testSecret
				c.HTTP.RequestTimeout = c.HTTP.WriteTimeout
			},
			wantErr: "http.write_timeout",
		},
		{
			name: "no queue needs no request timeout",
			modify: func(c *Config) {
				c.Session.Secret = testSecret
				c.HTTP.RequestTimeout = 0
				c.RateLimit.QueueLimit = 0
			},
		},
		{
			name: "zero permit limit with limiter disabled",
			modify: func(c *Config) {
				c.Session.Secret = testSecret
				c.RateLimit.Enabled = false
				c.RateLimit.PermitLimit = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)

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

func TestMaxQueueWait(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cfg.HTTP.RequestTimeout, cfg.MaxQueueWait(), "bounded by the request timeout")

	cfg.HTTP.RequestTimeout = 0
	assert.Equal(t, cfg.RateLimit.Window, cfg.MaxQueueWait(), "a full window without one")

	cfg.HTTP.RequestTimeout = 2 * time.Minute
	assert.Equal(t, cfg.RateLimit.Window, cfg.MaxQueueWait(), "never longer than a window")

	cfg.RateLimit.QueueLimit = 0
	assert.Zero(t, cfg.MaxQueueWait())
}

func TestSecureCookies(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.SecureCookies(), "secure by default in production")

	cfg.Environment = EnvDevelopment
	assert.False(t, cfg.SecureCookies(), "insecure by default in development")

	secure := true
	cfg.Session.CookieSecure = &secure
	assert.True(t, cfg.SecureCookies(), "explicit setting wins")
}
