package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"   validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// StorageConfig describes the filesystem roots for uploaded and
// compressed blobs.
type StorageConfig struct {
	UploadDir     string `mapstructure:"upload_dir"     validate:"required"`
	CompressedDir string `mapstructure:"compressed_dir" validate:"required"`
}

// WorkerConfig tunes background compression behavior.
type WorkerConfig struct {
	// GzipLevel is the compression level passed to the codec.
	// Valid range follows gzip: -2 (huffman only) through 9 (best).
	GzipLevel int `mapstructure:"gzip_level" validate:"gte=-2,lte=9"`

	// StaleTaskAge defines how long a task may sit in processing state
	// before the sweeper considers it abandoned and resets it to pending.
	StaleTaskAge time.Duration `mapstructure:"stale_task_age"`

	// SweepInterval defines how often the sweeper looks for stale
	// processing tasks. Zero disables the sweeper.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}
