package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

const (
	envKey     = "APP_ENV"
	defaultEnv = "local"
)

// AppEnv returns the environment name the config file is selected by,
// e.g. "local" or "prd001".
func AppEnv() string {
	if env := os.Getenv(envKey); env != "" {
		return env
	}
	return defaultEnv
}

// Load reads configs/{APP_ENV}.yaml relative to the working directory.
func Load() (Config, error) {
	return LoadFrom("configs")
}

// LoadFrom reads {dir}/{APP_ENV}.yaml, applying defaults and letting
// environment variables override individual fields.
func LoadFrom(dir string) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName(AppEnv())
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "read config")
		}
		// No file is fine: defaults plus env overrides still make a
		// complete local config.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.socket_timeout_seconds", 5)
	v.SetDefault("stream.addr", "localhost:6379")
	v.SetDefault("stream.max_idle", 8)
	v.SetDefault("stream.max_active", 10)
	v.SetDefault("mysql.addr", "127.0.0.1:3306")
	v.SetDefault("mysql.db_name", "queueline")
	v.SetDefault("mysql.max_open_conns", 10)
	v.SetDefault("view.base_url", "http://localhost:8000")
	v.SetDefault("admin.username", "admin")
	v.SetDefault("session.aes_key", "0123456789abcdef")
	v.SetDefault("session.aes_iv", "fedcba9876543210")
	v.SetDefault("analytics.tz_offset_seconds", 28800)
	v.SetDefault("bus.listener_queue_size", 5)
	v.SetDefault("dedup.lease_ttl_seconds", 60)
}
