// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers defaults, an optional YAML file, and env vars.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// BusBufferSize bounds each broadcast subscriber's buffer.
	BusBufferSize int `koanf:"bus_buffer_size"`

	// HighlightTTLMS controls how long a remote-change highlight
	// lingers on an idle cell.
	HighlightTTLMS int `koanf:"highlight_ttl_ms"`

	// MaxPoints caps a single round score.
	MaxPoints float64 `koanf:"max_points"`

	// DedupeSize sets the broadcast message-id dedupe window.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":9090",
		BusBufferSize:  64,
		HighlightTTLMS: 2500,
		MaxPoints:      1000,
		DedupeSize:     4096,
	}
}
