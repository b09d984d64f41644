package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"cflow/internal/switchc"
	"cflow/internal/trace"
)

const configFileName = "cflow.toml"

type config struct {
	// Path is the file the configuration was read from, empty for defaults.
	Path  string      `toml:"-"`
	Lower lowerConfig `toml:"lower"`
	Cache cacheConfig `toml:"cache"`
	Trace traceConfig `toml:"trace"`
}

type lowerConfig struct {
	MaxDepth     int    `toml:"max_depth"`
	Jobs         int    `toml:"jobs"`
	EqualsMethod string `toml:"equals_method"`
	FailFast     bool   `toml:"fail_fast"`
}

type cacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type traceConfig struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Output string `toml:"output"`
}

func defaultConfig() config {
	return config{
		Lower: lowerConfig{EqualsMethod: switchc.DefaultEqualsMethod},
		Cache: cacheConfig{Enabled: true},
	}
}

func errInvalidFlag(name, value, expected string) error {
	return fmt.Errorf("invalid --%s value %q (expected %s)", name, value, expected)
}

// findConfig walks up from startDir looking for cflow.toml.
func findConfig(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// loadConfig reads path over the defaults. Keys absent from the file keep
// their default; unknown keys are rejected.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("lower", "max_depth") && cfg.Lower.MaxDepth <= 0 {
		return config{}, fmt.Errorf("%s: [lower].max_depth must be positive", path)
	}
	if cfg.Lower.Jobs < 0 {
		return config{}, fmt.Errorf("%s: [lower].jobs must not be negative", path)
	}
	if meta.IsDefined("lower", "equals_method") && strings.TrimSpace(cfg.Lower.EqualsMethod) == "" {
		return config{}, fmt.Errorf("%s: [lower].equals_method must not be empty", path)
	}
	if meta.IsDefined("cache", "dir") && !filepath.IsAbs(cfg.Cache.Dir) {
		cfg.Cache.Dir = filepath.Join(filepath.Dir(path), cfg.Cache.Dir)
	}
	if meta.IsDefined("trace", "level") {
		if _, err := trace.ParseLevel(cfg.Trace.Level); err != nil {
			return config{}, fmt.Errorf("%s: [trace].level: %w", path, err)
		}
	}
	if meta.IsDefined("trace", "mode") {
		if _, err := trace.ParseMode(cfg.Trace.Mode); err != nil {
			return config{}, fmt.Errorf("%s: [trace].mode: %w", path, err)
		}
	}
	cfg.Path = path
	return cfg, nil
}

var loadedConfig = defaultConfig()

// loadConfigFor resolves the configuration of a command: --config when
// given, else cflow.toml discovered from the first argument's directory.
func loadConfigFor(cmd *cobra.Command, args []string) (config, error) {
	explicit, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config{}, err
	}
	path := explicit
	if path == "" {
		start := "."
		if len(args) > 0 {
			start = filepath.Dir(args[0])
		}
		found, ok, err := findConfig(start)
		if err != nil {
			return config{}, err
		}
		if !ok {
			loadedConfig = defaultConfig()
			return loadedConfig, nil
		}
		path = found
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return config{}, err
	}
	loadedConfig = cfg
	return cfg, nil
}
