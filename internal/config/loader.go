package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering, lowest precedence first:
//
//  1. defaults (New)
//  2. YAML file: the path argument, or RECKON_CONFIG when path is empty
//  3. environment variables with the RECKON_ prefix
//
// Env keys map to koanf tags by lowercasing and stripping the prefix, so
// RECKON_DB_PATH sets db_path.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv("RECKON_CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("RECKON_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "reckon_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load config env: %w", err)
	}

	cfg := *New()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("invalid config: db_path must not be empty")
	}
	switch c.OutputFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid config: output_format %q is not text or json", c.OutputFormat)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid config: log_level %q is not debug, info, warn or error", c.LogLevel)
	}
	if c.ValidationParallelism < 1 {
		return fmt.Errorf("invalid config: validation_parallelism must be at least 1, got %d", c.ValidationParallelism)
	}
	return nil
}
