// SPDX-License-Identifier: MIT

// Package config handles loading, saving, and resolving the gitsync
// configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/skaphos/gitsync/internal/discovery"
	"github.com/skaphos/gitsync/internal/model"
)

const (
	// LocalConfigFilename is the per-directory gitsync config file.
	LocalConfigFilename = ".gitsync.yaml"
	// LegacyConfigFilename is the JSON file read from the working directory
	// when no YAML config is found.
	LegacyConfigFilename = "config.json"
	// EnvPrefix prefixes environment overrides, e.g. GITSYNC_PUSH=true.
	EnvPrefix = "GITSYNC"
	// EnvConfigPath names the environment variable that points at a config
	// file or directory.
	EnvConfigPath = "GITSYNC_CONFIG"
)

// Config keys, shared by the file, environment and flag layers.
const (
	KeyDirectory      = "directory"
	KeyPush           = "push"
	KeyVerbose        = "verbose"
	KeyExclude        = "exclude"
	KeySkipDirs       = "skip_dirs"
	KeyTimeoutSeconds = "timeout_seconds"
	KeyConcurrency    = "concurrency"
	KeyOrdered        = "ordered"
	KeyRemote         = "remote"
)

var (
	// ErrNoConfig is returned when neither a config file nor a root
	// argument names the directory to synchronize.
	ErrNoConfig = errors.New("no configuration: pass a ROOT argument or create a config file with a directory")
	// ErrInvalidConfig marks a config that loaded but cannot be used.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is the gitsync configuration.
type Config struct {
	// Directory is the root scanned for repositories.
	Directory      string   `mapstructure:"directory" yaml:"directory"`
	Push           bool     `mapstructure:"push" yaml:"push"`
	Verbose        bool     `mapstructure:"verbose" yaml:"verbose"`
	Exclude        []string `mapstructure:"exclude" yaml:"exclude"`
	SkipDirs       []string `mapstructure:"skip_dirs" yaml:"skip_dirs"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	// Concurrency caps in-flight repositories; zero is unbounded.
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
	Ordered     bool   `mapstructure:"ordered" yaml:"ordered"`
	Remote      string `mapstructure:"remote" yaml:"remote"`

	// Path is the file the config was loaded from, if any.
	Path string `mapstructure:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults applied.
func DefaultConfig() Config {
	return Config{
		Exclude:        []string{},
		SkipDirs:       append([]string(nil), discovery.DefaultSkipNames...),
		TimeoutSeconds: 60,
		Concurrency:    0,
		Remote:         "origin",
	}
}

func defaultValues() map[string]any {
	d := DefaultConfig()
	return map[string]any{
		KeyDirectory:      d.Directory,
		KeyPush:           d.Push,
		KeyVerbose:        d.Verbose,
		KeyExclude:        d.Exclude,
		KeySkipDirs:       d.SkipDirs,
		KeyTimeoutSeconds: d.TimeoutSeconds,
		KeyConcurrency:    d.Concurrency,
		KeyOrdered:        d.Ordered,
		KeyRemote:         d.Remote,
	}
}

// ConfigDir returns the platform-appropriate config directory path.
// It checks, in order: the override parameter, GITSYNC_CONFIG, and finally
// os.UserConfigDir()/gitsync.
func ConfigDir(override string) (string, error) {
	if override != "" {
		if isConfigFilePath(override) {
			return filepath.Dir(override), nil
		}
		return override, nil
	}

	if env := os.Getenv(EnvConfigPath); env != "" {
		if isConfigFilePath(env) {
			return filepath.Dir(env), nil
		}
		return env, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "gitsync"), nil
}

// ConfigPath resolves the config file path from override/env/defaults.
func ConfigPath(override string) (string, error) {
	if override != "" {
		if isConfigFilePath(override) {
			return override, nil
		}
		return filepath.Join(override, "config.yaml"), nil
	}

	if env := os.Getenv(EnvConfigPath); env != "" {
		if isConfigFilePath(env) {
			return env, nil
		}
		return filepath.Join(env, "config.yaml"), nil
	}

	dir, err := ConfigDir("")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// InitConfigPath resolves where "gitsync init" should write config.
// Order: explicit override, GITSYNC_CONFIG, then local dotfile in cwd.
func InitConfigPath(override, cwd string) (string, error) {
	if override != "" || os.Getenv(EnvConfigPath) != "" {
		return ConfigPath(override)
	}

	cwd, err := workingDir(cwd)
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, LocalConfigFilename), nil
}

// ResolveConfigPath resolves config for a sync run.
// Order: explicit override, GITSYNC_CONFIG, nearest local dotfile in
// cwd/parents, config.json in cwd, then the global platform config path.
// The returned path may not exist.
func ResolveConfigPath(override, cwd string) (string, error) {
	if override != "" || os.Getenv(EnvConfigPath) != "" {
		return ConfigPath(override)
	}

	cwd, err := workingDir(cwd)
	if err != nil {
		return "", err
	}

	localPath, err := FindNearestConfigPath(cwd)
	if err != nil {
		return "", err
	}
	if localPath != "" {
		return localPath, nil
	}

	legacy := filepath.Join(cwd, LegacyConfigFilename)
	if _, err := os.Stat(legacy); err == nil {
		return legacy, nil
	}

	return ConfigPath("")
}

// FindNearestConfigPath searches cwd and each parent directory for .gitsync.yaml.
// It returns an empty string when no local config file is found.
func FindNearestConfigPath(cwd string) (string, error) {
	dir := cwd
	for {
		candidate := filepath.Join(dir, LocalConfigFilename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Load reads configuration from path, layered over defaults and under
// GITSYNC_* environment overrides. An empty path loads defaults and
// environment only. Relative directories are resolved against the config
// file location.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaultValues() {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if filepath.Ext(path) == "" {
			v.SetConfigType("yaml")
		}
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
		}
	}

	cfg := DefaultConfig()
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	cfg.Path = path
	cfg.Directory = ResolveDirectory(path, cfg.Directory)
	cfg.Exclude = trimItems(cfg.Exclude)
	cfg.SkipDirs = trimItems(cfg.SkipDirs)
	return &cfg, nil
}

// ResolveDirectory resolves directory against the config file location.
// Absolute paths are returned cleaned; a leading "~" expands to the home
// directory; relative paths are joined to the directory containing
// configPath.
func ResolveDirectory(configPath, directory string) string {
	directory = strings.TrimSpace(directory)
	if directory == "" {
		return ""
	}
	if directory == "~" || strings.HasPrefix(directory, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			directory = filepath.Join(home, strings.TrimPrefix(directory, "~"))
		}
	}
	if filepath.IsAbs(directory) || strings.TrimSpace(configPath) == "" {
		return filepath.Clean(directory)
	}
	return filepath.Clean(filepath.Join(filepath.Dir(configPath), directory))
}

// Validate checks that cfg can drive a sync run.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Directory) == "" {
		if c.Path != "" {
			return fmt.Errorf("%w: %s does not set directory", ErrInvalidConfig, c.Path)
		}
		return ErrNoConfig
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: timeout_seconds must not be negative (got %d)", ErrInvalidConfig, c.TimeoutSeconds)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must not be negative (got %d)", ErrInvalidConfig, c.Concurrency)
	}
	if strings.ContainsAny(c.Remote, " \t\r\n") {
		return fmt.Errorf("%w: remote %q contains whitespace", ErrInvalidConfig, c.Remote)
	}
	if strings.HasPrefix(c.Remote, "-") {
		return fmt.Errorf("%w: remote %q must not start with '-'", ErrInvalidConfig, c.Remote)
	}
	return nil
}

// Options projects the sync options for the engine.
func (c *Config) Options() model.Options {
	return model.Options{
		Push:        c.Push,
		Verbose:     c.Verbose,
		Remote:      c.Remote,
		Timeout:     time.Duration(c.TimeoutSeconds) * time.Second,
		Concurrency: c.Concurrency,
		Ordered:     c.Ordered,
	}
}

// Scan projects the discovery options for the engine.
func (c *Config) Scan() discovery.Options {
	return discovery.Options{
		Root:      c.Directory,
		SkipNames: c.SkipDirs,
		Exclude:   c.Exclude,
	}
}

// Save writes the config to the given path.
func Save(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func isConfigFilePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

func workingDir(cwd string) (string, error) {
	if strings.TrimSpace(cwd) != "" {
		return cwd, nil
	}
	return os.Getwd()
}

func trimItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
