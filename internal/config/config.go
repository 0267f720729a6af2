// Package config loads exprstate settings from defaults, an optional config
// file, EXPRSTATE_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. EXPRSTATE_DB_PATH.
const EnvPrefix = "EXPRSTATE"

// Config is the complete exprstate configuration.
type Config struct {
	BackendURL     string        `mapstructure:"backend_url"`
	DBPath         string        `mapstructure:"db_path"`
	SessionID      string        `mapstructure:"session_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// Local serves the backend API from the local database instead of
	// BackendURL.
	Local bool `mapstructure:"local"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		BackendURL:     "http://localhost:8080",
		DBPath:         "exprstate.db",
		SessionID:      "default",
		RequestTimeout: 10 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// flagKeys maps flag names to config keys for flags that differ.
var flagKeys = map[string]string{
	"backend": "backend_url",
	"db":      "db_path",
	"session": "session_id",
	"local":   "local",
	"timeout": "request_timeout",
}

// Load builds the configuration.
//
// configFile, when non-empty, must exist. Otherwise exprstate.{yaml,toml,json}
// is looked up in the working directory and then $HOME/.exprstate; a missing
// file is not an error. Flags that were set on the command line override
// everything else.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("backend_url", def.BackendURL)
	v.SetDefault("db_path", def.DBPath)
	v.SetDefault("session_id", def.SessionID)
	v.SetDefault("request_timeout", def.RequestTimeout)
	v.SetDefault("local", def.Local)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("exprstate")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".exprstate"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return &ConfigError{Field: "db_path", Message: "must not be empty"}
	}
	if !c.Local {
		u, err := url.Parse(c.BackendURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ConfigError{Field: "backend_url", Message: fmt.Sprintf("invalid URL %q", c.BackendURL)}
		}
	}
	if c.RequestTimeout < 0 {
		return &ConfigError{Field: "request_timeout", Message: "must not be negative"}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return &ConfigError{Field: "log.format", Message: fmt.Sprintf("unknown format %q", c.Log.Format)}
	}
	return nil
}

// ConfigError is an invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
