package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of configuration environment variables.
// Nested keys are separated by a double underscore, e.g.
// DORMO_SESSION__COOKIE_NAME sets session.cookie_name.
const EnvPrefix = "DORMO_"

// Flag names
const (
	FlagConfig      = "config"
	FlagEnvFile     = "env-file"
	FlagEnvironment = "environment"
	FlagHost        = "host"
	FlagPort        = "port"
	FlagStorage     = "storage"
	FlagRedisURL    = "redis-url"
	FlagPostgresDSN = "postgres-dsn"
	FlagMigrate     = "migrate"
	FlagLogFormat   = "log-format"
	FlagLogLevel    = "log-level"
)

// flagKeys maps flags onto configuration keys
var flagKeys = map[string]string{
	FlagEnvironment: "environment",
	FlagHost:        "http.host",
	FlagPort:        "http.port",
	FlagStorage:     "storage.type",
	FlagRedisURL:    "storage.redis_url",
	FlagPostgresDSN: "storage.postgres_dsn",
	FlagMigrate:     "storage.migrate",
	FlagLogFormat:   "log.format",
	FlagLogLevel:    "log.level",
}

// RegisterFlags adds the configuration flags to flags
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String(FlagConfig, "", "path to a YAML configuration file")
	flags.String(FlagEnvFile, ".env", "path to a .env file (ignored if missing)")
	flags.String(FlagEnvironment, "", "environment name (development, production)")
	flags.String(FlagHost, "", "HTTP listen host")
	flags.Int(FlagPort, 0, "HTTP listen port")
	flags.String(FlagStorage, "", "storage backend (memory, redis, postgres)")
	flags.String(FlagRedisURL, "", "Redis connection URL")
	flags.String(FlagPostgresDSN, "", "PostgreSQL connection string")
	flags.Bool(FlagMigrate, false, "apply PostgreSQL migrations at startup")
	flags.String(FlagLogFormat, "", "log format (json, text)")
	flags.String(FlagLogLevel, "", "log level (debug, info, warn, error)")
}

// Load builds the configuration. flags may be nil; when set, only flags
// the user changed override other sources. The result is not validated.
func Load(flags *pflag.FlagSet) (*Config, error) {
	configPath, envFile := "", ".env"
	if flags != nil {
		if f := flags.Lookup(FlagConfig); f != nil {
			configPath = f.Value.String()
		}
		if f := flags.Lookup(FlagEnvFile); f != nil {
			envFile = f.Value.String()
		}
	}

	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if flags != nil {
		flagKey := func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile exports the variables in path without overriding ones
// already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// envKey turns DORMO_SESSION__COOKIE_NAME into session.cookie_name
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
