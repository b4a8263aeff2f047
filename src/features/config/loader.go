package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/contre95/pew/src/reload"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath       = "pew.toml"
	LegacyPath        = "mlw.toml"
	DefaultIgnore     = `.*\.git.*`
	DefaultScriptType = "node"
	DefaultStatusPort = 3737
	DefaultHistory    = 50
)

// FindPath returns the config file to use. An explicit path is always used as
// given; otherwise pew.toml is preferred and mlw.toml is used when only it exists.
func FindPath(path string, explicit bool) string {
	if explicit || path != DefaultPath {
		return path
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if _, err := os.Stat(LegacyPath); err == nil {
			return LegacyPath
		}
	}
	return path
}

// Load reads a TOML or YAML file from the given path, applies defaults and
// validates it. The format is chosen by extension; anything that is not
// .yaml or .yml is read as TOML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "toml"
	}
}

// Parse decodes data in the given format ("toml" or "yaml") and fills defaults.
func Parse(data []byte, format string) (*Config, error) {
	var cfg Config
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return nil, err
		}
	case "toml":
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown keys: %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.IgnorePattern == nil {
		ignore := DefaultIgnore
		cfg.IgnorePattern = &ignore
	}
	if cfg.ScriptType == "" && len(cfg.Command) == 0 {
		cfg.ScriptType = DefaultScriptType
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = reload.DefaultPollInterval
	}
	if cfg.Debounce == nil {
		window := reload.DefaultDebounce
		if cfg.Delay != nil {
			window = time.Duration(*cfg.Delay) * time.Second
		}
		cfg.Debounce = &window
	}
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = reload.DefaultGracefulTimeout
	}
	if cfg.OnDelete == "" {
		cfg.OnDelete = string(reload.DeletionRestart)
	}
	if cfg.OnCrash == "" {
		cfg.OnCrash = string(reload.CrashWait)
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "text"
	}
	if cfg.Status.Port == 0 {
		cfg.Status.Port = DefaultStatusPort
	}
	if cfg.History.Limit == 0 {
		cfg.History.Limit = DefaultHistory
	}
}

// Validate runs the struct tag checks and then the checks that need the
// filesystem: watched paths must be directories, the ignore pattern must
// compile and the script type must be known.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	var errs []error
	for _, p := range cfg.Path {
		info, err := os.Stat(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("path %s: %w", p, err))
			continue
		}
		if !info.IsDir() {
			errs = append(errs, fmt.Errorf("path %s is not a directory", p))
		}
	}
	if cfg.IgnorePattern != nil && *cfg.IgnorePattern != "" {
		if _, err := regexp.Compile(*cfg.IgnorePattern); err != nil {
			errs = append(errs, fmt.Errorf("ignore_pattern: %w", err))
		}
	}
	if len(cfg.Command) == 0 {
		if _, ok := LookupInterpreter(cfg.ScriptType); !ok {
			errs = append(errs, fmt.Errorf("unsupported script_type %q, expected one of %s", cfg.ScriptType, strings.Join(ScriptTypes(), ", ")))
		}
	}
	if cfg.Workdir != "" {
		if info, err := os.Stat(cfg.Workdir); err != nil || !info.IsDir() {
			errs = append(errs, fmt.Errorf("workdir %s is not a directory", cfg.Workdir))
		}
	}
	if cfg.Status.Enabled && cfg.Status.Port == 0 {
		errs = append(errs, errors.New("status.port is required when the status server is enabled"))
	}
	return errors.Join(errs...)
}

// Resolve turns a validated Config into the immutable RunConfig of one run.
func Resolve(cfg *Config) (reload.RunConfig, error) {
	var ignore *regexp.Regexp
	if cfg.IgnorePattern != nil && *cfg.IgnorePattern != "" {
		re, err := regexp.Compile(*cfg.IgnorePattern)
		if err != nil {
			return reload.RunConfig{}, fmt.Errorf("ignore_pattern: %w", err)
		}
		ignore = re
	}

	cmd, exts, err := resolveCommand(cfg)
	if err != nil {
		return reload.RunConfig{}, err
	}
	if len(cfg.Extensions) > 0 {
		exts = cfg.Extensions
	}

	targets := make([]reload.WatchTarget, 0, len(cfg.Path))
	for _, p := range cfg.Path {
		targets = append(targets, reload.NewWatchTarget(p, exts...))
	}

	rc := reload.RunConfig{
		Targets:         targets,
		Ignore:          ignore,
		PollInterval:    cfg.PollInterval,
		Debounce:        cfg.DebounceWindow(),
		Command:         cmd,
		GracefulTimeout: cfg.GracefulTimeout,
		LogLevel:        cfg.LogLevel(),
		OnDelete:        reload.DeletionPolicy(cfg.OnDelete),
		OnCrash:         reload.CrashPolicy(cfg.OnCrash),
		SpawnRetries:    cfg.SpawnRetries,
	}
	return rc.WithDefaults(), nil
}

// resolveCommand builds the command line. An explicit command wins; otherwise
// the interpreter runs the script, which defaults to the first watched path.
func resolveCommand(cfg *Config) (reload.Command, []string, error) {
	if len(cfg.Command) > 0 {
		args := append(append([]string{}, cfg.Command[1:]...), cfg.ScriptArgs...)
		return reload.Command{Name: cfg.Command[0], Args: args, Dir: cfg.Workdir}, nil, nil
	}

	interp, ok := LookupInterpreter(cfg.ScriptType)
	if !ok {
		return reload.Command{}, nil, fmt.Errorf("unsupported script_type %q", cfg.ScriptType)
	}
	script := cfg.Script
	if script == "" {
		script = cfg.Path[0]
	}
	args := append([]string{}, interp.Args...)
	args = append(args, script)
	args = append(args, cfg.ScriptArgs...)
	return reload.Command{Name: interp.Program, Args: args, Dir: cfg.Workdir}, interp.Extensions, nil
}
