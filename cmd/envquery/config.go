package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/envquery"
)

// config holds the CLI settings.
type config struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// MaxTestingTime is the per-Tick budget of time-sliced runs.
	MaxTestingTime time.Duration `mapstructure:"max_testing_time"`
	MemoryLimit    int64         `mapstructure:"memory_limit"`
	Seed           int64         `mapstructure:"seed"`

	Debug            bool   `mapstructure:"debug"`
	DebugCompression string `mapstructure:"debug_compression"`
	DebugHistory     int    `mapstructure:"debug_history"`
}

// flagKeys maps root flags to config keys.
var flagKeys = map[string]string{
	"log-level":  "log_level",
	"log-format": "log_format",
}

// loadConfig reads settings from file, environment and flags.
// A missing default config file is not an error.
func loadConfig(cmd *cobra.Command) (*config, error) {
	v := viper.New()

	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")
	v.SetDefault("max_testing_time", envquery.DefaultMaxAllowedTestingTime)
	v.SetDefault("memory_limit", 0)
	v.SetDefault("seed", 0)
	v.SetDefault("debug", false)
	v.SetDefault("debug_compression", "lz4")
	v.SetDefault("debug_history", 10)

	v.SetEnvPrefix("ENVQUERY")
	v.AutomaticEnv()

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("envquery")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// logger builds the query logger for cfg, writing to w.
func (c *config) logger(w io.Writer) (*envquery.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(c.LogFormat) {
	case "json":
		return envquery.NewLogger(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return envquery.NewLogger(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", c.LogFormat)
	}
}
