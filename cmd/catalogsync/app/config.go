package app

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/catalogsync"
	"github.com/agentstation/catalogsync/internal/cmd/output"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by the CLI.
const EnvPrefix = "CATALOGSYNC"

// Lock backends.
const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Config holds the application configuration loaded from flags,
// environment variables, .env files and the config file.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Local store
	DBPath string

	// Remote catalog
	RemoteURL   string
	Token       string
	HTTPTimeout time.Duration

	// Reconciliation
	PushConcurrency     int
	AdoptByExternalCode bool
	AutoSyncInterval    time.Duration

	// Session lock
	LockBackend  string
	RedisAddress string
	LockKey      string
	LockTTL      time.Duration

	// Logging configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (CATALOGSYNC_*)
// 3. .env files
// 4. Config file (~/.catalogsync.yaml)
// 5. Defaults
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(constants.ConfigFileName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, errors.NewConfigError("config file", "failed to read", err)
		}
	}

	config := &Config{
		Verbose:    v.GetBool("verbose"),
		Quiet:      v.GetBool("quiet"),
		NoColor:    v.GetBool("no_color"),
		Format:     v.GetString("format"),
		ConfigFile: v.ConfigFileUsed(),

		DBPath: v.GetString("db_path"),

		RemoteURL:   v.GetString("remote_url"),
		Token:       v.GetString("token"),
		HTTPTimeout: v.GetDuration("http_timeout"),

		PushConcurrency:     v.GetInt("push_concurrency"),
		AdoptByExternalCode: v.GetBool("adopt_by_external_code"),
		AutoSyncInterval:    v.GetDuration("auto_sync_interval"),

		LockBackend:  strings.ToLower(v.GetString("lock_backend")),
		RedisAddress: v.GetString("redis_address"),
		LockKey:      v.GetString("lock_key"),
		LockTTL:      v.GetDuration("lock_ttl"),

		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LogOutput: v.GetString("log_output"),
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", filepath.Join(constants.DefaultDataPath, constants.DefaultDatabaseName))
	v.SetDefault("remote_url", constants.DefaultRemoteURL)
	v.SetDefault("http_timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("push_concurrency", constants.DefaultPushConcurrency)
	v.SetDefault("adopt_by_external_code", false)
	v.SetDefault("auto_sync_interval", constants.DefaultAutoSyncInterval)
	v.SetDefault("lock_backend", LockBackendLocal)
	v.SetDefault("lock_key", constants.DefaultLockKey)
	v.SetDefault("lock_ttl", constants.DefaultLockTTL)
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")
}

// Validate checks the configuration before a client is built from it.
func (c *Config) Validate() error {
	if _, err := output.ParseFormat(c.Format); err != nil {
		return errors.NewConfigError("format", err.Error(), err)
	}
	if c.PushConcurrency < 1 || c.PushConcurrency > constants.MaxPushConcurrency {
		return errors.NewConfigError("push_concurrency", "must be between 1 and 32", nil)
	}
	if c.AutoSyncInterval <= 0 {
		return errors.NewConfigError("auto_sync_interval", "must be positive", nil)
	}
	switch c.LockBackend {
	case LockBackendLocal, "":
	case LockBackendRedis:
		if c.RedisAddress == "" {
			return errors.NewConfigError("redis_address", "is required when lock_backend is redis", nil)
		}
	default:
		return errors.NewConfigError("lock_backend", "must be local or redis, got "+c.LockBackend, nil)
	}
	return nil
}

// ClientOptions translates the configuration into client options.
func (c *Config) ClientOptions() []catalogsync.Option {
	opts := []catalogsync.Option{
		catalogsync.WithSQLite(c.DBPath),
		catalogsync.WithRemoteURL(c.RemoteURL),
		catalogsync.WithPushConcurrency(c.PushConcurrency),
		catalogsync.WithAdoption(c.AdoptByExternalCode),
		catalogsync.WithAutoSyncInterval(c.AutoSyncInterval),
	}
	if c.HTTPTimeout > 0 {
		opts = append(opts, catalogsync.WithHTTPTimeout(c.HTTPTimeout))
	}
	if c.LockBackend == LockBackendRedis {
		opts = append(opts, catalogsync.WithRedisLock(c.RedisAddress, c.LockKey, c.LockTTL))
	}
	return opts
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads environment variables from .env files.
// .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}
