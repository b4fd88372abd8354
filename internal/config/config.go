// Package config loads autotap settings from defaults, an optional YAML
// file and AUTOTAP_ environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/roach88/autotap/internal/engine"
	"github.com/roach88/autotap/internal/journal"
	"github.com/roach88/autotap/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g.
// AUTOTAP_ENGINE_POST_TIMEOUT=250ms.
const EnvPrefix = "AUTOTAP"

// Config holds application configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Log     LogConfig     `mapstructure:"log"`
	Journal JournalConfig `mapstructure:"journal"`
}

// EngineConfig holds dispatch deadlines and the host version gate.
type EngineConfig struct {
	PostTimeout       time.Duration `mapstructure:"post_timeout"`
	CompletionTimeout time.Duration `mapstructure:"completion_timeout"`
	CallerTimeout     time.Duration `mapstructure:"caller_timeout"`
	MinHostVersion    int           `mapstructure:"min_host_version"`
	StuckAfter        time.Duration `mapstructure:"stuck_after"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// JournalConfig holds dispatch journal settings. An empty path disables
// the journal.
type JournalConfig struct {
	Path   string `mapstructure:"path"`
	Buffer int    `mapstructure:"buffer"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.post_timeout", engine.DefaultPostTimeout)
	v.SetDefault("engine.completion_timeout", engine.DefaultCompletionTimeout)
	v.SetDefault("engine.caller_timeout", engine.DefaultCallerTimeout)
	v.SetDefault("engine.min_host_version", engine.DefaultMinHostVersion)
	v.SetDefault("engine.stuck_after", engine.DefaultStuckAfter)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("journal.path", "")
	v.SetDefault("journal.buffer", journal.DefaultBuffer)
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	_ = v.Unmarshal(&c)
	return c
}

// Load reads configuration. path names a YAML file; when empty,
// AUTOTAP_CONFIG is consulted, then $HOME/.config/autotap/config.yaml if it
// exists. An explicitly named file that cannot be read is an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "autotap"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	for name, d := range map[string]time.Duration{
		"engine.post_timeout":       c.Engine.PostTimeout,
		"engine.completion_timeout": c.Engine.CompletionTimeout,
		"engine.caller_timeout":     c.Engine.CallerTimeout,
		"engine.stuck_after":        c.Engine.StuckAfter,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.Engine.MinHostVersion < 0 {
		errs = append(errs, fmt.Errorf("engine.min_host_version must not be negative, got %d", c.Engine.MinHostVersion))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Journal.Buffer <= 0 {
		errs = append(errs, fmt.Errorf("journal.buffer must be positive, got %d", c.Journal.Buffer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// EngineOptions maps the engine section to engine options.
func (c Config) EngineOptions() []engine.Option {
	return []engine.Option{
		engine.WithPostTimeout(c.Engine.PostTimeout),
		engine.WithCompletionTimeout(c.Engine.CompletionTimeout),
		engine.WithCallerTimeout(c.Engine.CallerTimeout),
		engine.WithMinHostVersion(c.Engine.MinHostVersion),
		engine.WithStuckAfter(c.Engine.StuckAfter),
	}
}

// Logger builds the configured logger.
func (c Config) Logger() (*slog.Logger, error) {
	return logging.New(logging.Options{Level: c.Log.Level, Format: c.Log.Format})
}
