package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over values from config files and use the SQUASH_ prefix
// with underscores for nesting (e.g. SQUASH_SERVER_PORT).
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SQUASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values mirroring the service's original
// deployment layout: port 3000, uploads/ and compressed/ under the
// working directory.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.log_level", "info")
	// Registered empty so AutomaticEnv can bind SQUASH_DATABASE_URL;
	// validation rejects the empty value.
	v.SetDefault("database.url", "")
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.compressed_dir", "compressed")
	v.SetDefault("worker.gzip_level", -1)
	v.SetDefault("worker.stale_task_age", 30*time.Minute)
	v.SetDefault("worker.sweep_interval", time.Duration(0))
}
