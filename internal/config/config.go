// Package config defines process configuration and its loading rules.
//
// Configuration is layered: compiled-in defaults, then an optional YAML
// file, then RECKON_-prefixed environment variables. Later layers win.
package config

import "runtime"

// Config contains everything a reckon process needs to run.
type Config struct {
	// DBPath locates the SQLite event log. ":memory:" keeps everything
	// in-process, which tests and dry runs use.
	DBPath string `koanf:"db_path"`

	// OutputFormat selects CLI rendering: "text" or "json".
	OutputFormat string `koanf:"output_format"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr is the listen address for the Prometheus endpoint.
	// Empty disables the listener; metrics are still collected.
	MetricsAddr string `koanf:"metrics_addr"`

	// ValidationParallelism bounds concurrent subjects during a full
	// integrity scan.
	ValidationParallelism int `koanf:"validation_parallelism"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		DBPath:                "reckon.db",
		OutputFormat:          "text",
		LogLevel:              "info",
		MetricsAddr:           "",
		ValidationParallelism: runtime.NumCPU(),
	}
}
