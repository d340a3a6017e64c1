// Package config loads kbchat settings from JSON config files with an
// environment-variable overlay on top.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DefaultAPIBase is the backend endpoint used when nothing else is configured.
const DefaultAPIBase = "http://localhost:8000"

// Config holds all configurable kbchat settings.
type Config struct {
	APIBase          string `json:"api_base" envconfig:"API_BASE"`
	RequestTimeout   string `json:"request_timeout" envconfig:"KBCHAT_TIMEOUT"` // Go duration string; "" = no limit
	CancelOnNavigate *bool  `json:"cancel_on_navigate" envconfig:"KBCHAT_CANCEL_ON_NAVIGATE"`
	LogFile          string `json:"log_file" envconfig:"KBCHAT_LOG_FILE"` // "" disables logging
	LogLevel         string `json:"log_level" envconfig:"KBCHAT_LOG_LEVEL"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		APIBase:  DefaultAPIBase,
		LogLevel: "info",
	}
}

// Timeout parses RequestTimeout; malformed or empty values mean no limit.
func (c Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// NavigateCancels reports whether switching away from a streaming session
// should suppress its remaining deltas. Off by default: streams finish in
// the background.
func (c Config) NavigateCancels() bool {
	return c.CancelOnNavigate != nil && *c.CancelOnNavigate
}

// GlobalPath returns ~/.config/kbchat/config.json.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "kbchat", "config.json"), nil
}

// LoadGlobal reads the global config file. Returns defaults if it is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads .kbchatrc in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".kbchatrc", false)
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()

	apply := func(c *Config) {
		if c == nil {
			return
		}
		if c.APIBase != "" {
			result.APIBase = c.APIBase
		}
		if c.RequestTimeout != "" {
			result.RequestTimeout = c.RequestTimeout
		}
		if c.CancelOnNavigate != nil {
			result.CancelOnNavigate = c.CancelOnNavigate
		}
		if c.LogFile != "" {
			result.LogFile = c.LogFile
		}
		if c.LogLevel != "" {
			result.LogLevel = c.LogLevel
		}
	}

	// Global values over defaults, then project values over global.
	apply(global)
	apply(project)

	return result
}

// ApplyEnv overlays environment variables onto c. API_BASE matches the name
// the backend deployment uses; the remaining keys carry a KBCHAT_ prefix.
// Unset variables leave c untouched.
func ApplyEnv(c *Config) error {
	return envconfig.Process("", c)
}

// Load produces the effective configuration: defaults, global file, project
// file, then environment, each layer overriding the previous one.
func Load() (Config, error) {
	global, err := LoadGlobal()
	if err != nil {
		return Config{}, err
	}
	project, err := LoadProject()
	if err != nil {
		return Config{}, err
	}
	cfg := Merge(global, project)
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg as JSON to the global config path, creating the directory
// if needed. Used by the setup wizard.
func Save(cfg Config) error {
	path, err := GlobalPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
