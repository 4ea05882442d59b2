// Package config loads runtime settings for hosts embedding a2ui sessions.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Session SessionConfig
	Log     LogConfig
	Codec   CodecConfig
}

// SessionConfig holds data binding settings.
type SessionConfig struct {
	PathPolicy     string `mapstructure:"path_policy"`
	MaxSequenceGap int    `mapstructure:"max_sequence_gap"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// CodecConfig holds wire codec settings.
type CodecConfig struct {
	Format     string
	SigningKey string `mapstructure:"signing_key"`
}

// Load reads configuration from path (YAML, TOML or JSON by extension; an
// empty path skips the file) and from the environment. Env var overrides use
// prefix A2UI_, e.g. A2UI_SESSION_PATH_POLICY=strict.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("session.path_policy", "create")
	v.SetDefault("session.max_sequence_gap", 1024)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("codec.format", "json")
	v.SetDefault("codec.signing_key", "")

	v.SetEnvPrefix("A2UI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Logger builds a slog logger writing to w per the log settings.
func (c LogConfig) Logger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(c.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", c.Format)
}
