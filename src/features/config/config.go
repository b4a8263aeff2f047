package config

import "time"

// Config holds the application configuration as written in pew.toml.
type Config struct {
	Path            []string       `json:"path" toml:"path" yaml:"path" validate:"required,min=1,dive,required"`
	Extensions      []string       `json:"extensions" toml:"extensions" yaml:"extensions"`
	IgnorePattern   *string        `json:"ignore_pattern" toml:"ignore_pattern" yaml:"ignore_pattern"`
	ScriptType      string         `json:"script_type" toml:"script_type" yaml:"script_type"`
	Script          string         `json:"script" toml:"script" yaml:"script"`
	ScriptArgs      []string       `json:"script_args" toml:"script_args" yaml:"script_args"`
	Command         []string       `json:"command" toml:"command" yaml:"command" validate:"omitempty,dive,required"`
	Workdir         string         `json:"workdir" toml:"workdir" yaml:"workdir"`
	PollInterval    time.Duration  `json:"poll_interval" toml:"poll_interval" yaml:"poll_interval" validate:"gte=0"`
	Debounce        *time.Duration `json:"debounce" toml:"debounce" yaml:"debounce" validate:"omitempty,gte=0"`
	Delay           *int           `json:"delay" toml:"delay" yaml:"delay" validate:"omitempty,gte=0"` // seconds, kept for old config files
	GracefulTimeout time.Duration  `json:"graceful_timeout" toml:"graceful_timeout" yaml:"graceful_timeout" validate:"gte=0"`
	OnDelete        string         `json:"on_delete" toml:"on_delete" yaml:"on_delete" validate:"omitempty,oneof=restart ignore"`
	OnCrash         string         `json:"on_crash" toml:"on_crash" yaml:"on_crash" validate:"omitempty,oneof=wait restart exit"`
	SpawnRetries    int            `json:"spawn_retries" toml:"spawn_retries" yaml:"spawn_retries" validate:"gte=0"`
	ReloadConfig    bool           `json:"reload_config" toml:"reload_config" yaml:"reload_config"`
	Verbose         bool           `json:"verbose" toml:"verbose" yaml:"verbose"`
	Logger          Logger         `json:"logger" toml:"logger" yaml:"logger"`
	Status          Status         `json:"status" toml:"status" yaml:"status"`
	History         History        `json:"history" toml:"history" yaml:"history"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Level  string `json:"level" toml:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `json:"format" toml:"format" yaml:"format" validate:"omitempty,oneof=text json logfmt"`
}

// Status holds the configuration for the HTTP status server
type Status struct {
	Enabled bool   `json:"enabled" toml:"enabled" yaml:"enabled"`
	Port    uint32 `json:"port" toml:"port" yaml:"port" validate:"lte=65535"`
}

// History holds where process runs are recorded. An empty path keeps them in memory.
type History struct {
	Path  string `json:"path" toml:"path" yaml:"path"`
	Limit int    `json:"limit" toml:"limit" yaml:"limit" validate:"gte=0"`
}

// LogLevel is the effective log level; verbose wins over logger.level.
func (c *Config) LogLevel() string {
	if c.Verbose {
		return "debug"
	}
	return c.Logger.Level
}

// DebounceWindow is the coalescing window, zero when debounce is unset.
func (c *Config) DebounceWindow() time.Duration {
	if c.Debounce == nil {
		return 0
	}
	return *c.Debounce
}
