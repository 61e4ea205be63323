// Package config loads launcher settings and rule files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	appName          = "monlaunch"
	envPrefix        = "MONLAUNCH_"
	defaultLogLevel  = "info"
	defaultDebounce  = 250 * time.Millisecond
	defaultRulesFile = "config.yaml"
)

// Settings holds process-wide options. Rules live in a separate file.
type Settings struct {
	ConfigDir    string
	ConfigPath   string
	Display      string
	ListenAddr   string
	LogLevel     string
	PollInterval time.Duration
	Debounce     time.Duration
}

// LoadSettings reads defaults, then <user config dir>/monlaunch/.env, then
// MONLAUNCH_* environment variables. Flags are applied by the caller.
func LoadSettings() (Settings, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return loadSettings(filepath.Join(base, appName))
}

func loadSettings(dir string) (Settings, error) {
	cfg := Settings{
		ConfigDir:  dir,
		ConfigPath: filepath.Join(dir, defaultRulesFile),
		LogLevel:   defaultLogLevel,
		Debounce:   defaultDebounce,
	}

	if err := loadEnvFile(filepath.Join(dir, ".env")); err != nil {
		return Settings{}, err
	}

	cfg.ConfigPath = envString("CONFIG", cfg.ConfigPath)
	cfg.Display = envString("DISPLAY", cfg.Display)
	cfg.ListenAddr = envString("LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)

	poll, err := envDuration("POLL_INTERVAL", cfg.PollInterval)
	if err != nil {
		return Settings{}, err
	}
	if poll < 0 {
		return Settings{}, fmt.Errorf("%sPOLL_INTERVAL must be >= 0", envPrefix)
	}
	cfg.PollInterval = poll

	debounce, err := envDuration("DEBOUNCE", cfg.Debounce)
	if err != nil {
		return Settings{}, err
	}
	if debounce < 0 {
		return Settings{}, fmt.Errorf("%sDEBOUNCE must be >= 0", envPrefix)
	}
	cfg.Debounce = debounce

	return cfg, nil
}

// envString returns an env override when present, otherwise a default.
func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
		return v
	}
	return def
}

// envDuration returns a duration env override when present, otherwise a default.
func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(envPrefix + key))
	if raw == "" {
		return def, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s%s must be a duration: %w", envPrefix, key, err)
	}
	return value, nil
}

// loadEnvFile loads KEY=VALUE pairs from a .env file without overriding
// variables already set.
func loadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := parseEnvLine(line)
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); !exists {
			if err := os.Setenv(key, value); err != nil {
				return err
			}
		}
	}

	return nil
}

// parseEnvLine parses a single .env line into key/value.
func parseEnvLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}
	return key, strings.Trim(strings.TrimSpace(value), `"'`), true
}
