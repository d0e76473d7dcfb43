// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...Option) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the durable score log database file.
	DBPath string `koanf:"db_path"`

	// RetentionDays bounds how long a daily leaderboard window lives.
	RetentionDays int `koanf:"retention_days"`

	// MaxLeaderboardLimit caps the limit query parameter on leaderboard reads.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// DedupeSize bounds the duplicate-submission cache.
	DedupeSize int `koanf:"dedupe_size"`

	// BroadcastBuffer bounds each live subscriber's delivery channel.
	BroadcastBuffer int `koanf:"broadcast_buffer"`

	// ReplayWorkers sets the number of workers used for index rebuilds.
	ReplayWorkers int `koanf:"replay_workers"`

	// ReplayQueueSize bounds the in-flight row channel during rebuilds.
	ReplayQueueSize int `koanf:"replay_queue_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9090",
		DBPath:              "liverank.db",
		RetentionDays:       90,
		MaxLeaderboardLimit: 100,
		DedupeSize:          50000,
		BroadcastBuffer:     64,
		ReplayWorkers:       runtime.NumCPU() * 2,
		ReplayQueueSize:     1024,
	}
}
