// Package server implements the travelsdb HTTP front end.
//
// This file defines the YAML configuration of the server process. Unknown
// keys are rejected so that typos do not silently fall back to defaults.

package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level structure of config.yml.
type Config struct {
	// Bind is the address every worker listens on.
	Bind string `yaml:"bind"`
	// AdminBind serves /healthz, /metrics and /debug/pprof. Empty disables it.
	AdminBind string `yaml:"admin_bind"`

	DataFile    string `yaml:"data_file"`
	OptionsFile string `yaml:"options_file"`

	KeepAlive bool `yaml:"keep_alive"`
	// Workers is the number of independent listeners. 0 means one per logical core.
	Workers int `yaml:"workers"`
	// NumThreads is the legacy name of Workers.
	NumThreads int  `yaml:"num_threads"`
	PinCPUs    bool `yaml:"pin_cpus"`

	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`

	LogLevel  string `yaml:"log_level"`  // "debug", "info", "warn", "error"
	LogFormat string `yaml:"log_format"` // "text", "json"
}

// DefaultConfig returns the settings used when no file is present.
func DefaultConfig() Config {
	return Config{
		Bind:         ":80",
		DataFile:     "/tmp/data/data.zip",
		OptionsFile:  "/tmp/data/options.txt",
		KeepAlive:    true,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// LoadConfig reads and parses the YAML configuration file at path on top of
// DefaultConfig. ${VAR} references are expanded from the environment first.
// It uses Strict Mode (KnownFields) to prevent silent errors due to typos.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read configuration file '%s': %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))

	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("YAML syntax error in '%s': %w", path, err)
	}
	if cfg.Workers == 0 && cfg.NumThreads > 0 {
		cfg.Workers = cfg.NumThreads
	}

	return cfg, cfg.Validate()
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	var errs []error
	if c.Bind == "" {
		errs = append(errs, errors.New("bind must not be empty"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log_format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log_level %q", s)
	}
	return level, nil
}

// NewLogger builds the process logger described by LogLevel and LogFormat.
func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch c.LogFormat {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
}
