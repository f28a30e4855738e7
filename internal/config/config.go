// Package config loads radscribe settings from the project config file,
// RADSCRIBE_* environment variables and bound command-line flags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. RADSCRIBE_AUTO_DETECT
const EnvPrefix = "RADSCRIBE"

// Config holds radscribe configuration
type Config struct {
	User       string        `mapstructure:"user" yaml:"user"`
	AutoDetect bool          `mapstructure:"auto_detect" yaml:"auto_detect"`
	Patterns   PatternConfig `mapstructure:"patterns" yaml:"patterns"`
	Log        LogConfig     `mapstructure:"log" yaml:"log"`
	Watch      WatchConfig   `mapstructure:"watch" yaml:"watch"`
	Report     ReportConfig  `mapstructure:"report" yaml:"report"`
}

type PatternConfig struct {
	File string `mapstructure:"file" yaml:"file"` // YAML, TOML or JSON; empty uses built-in tables
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // debug | info | warn | error
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type ReportConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		User: defaultUser(),
		Log: LogConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers default values and environment binding on v
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("user", d.User)
	v.SetDefault("auto_detect", d.AutoDetect)
	v.SetDefault("patterns.file", d.Patterns.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("report.base_url", d.Report.BaseURL)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail later and less clearly
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.User) == "" {
		errs = append(errs, "user must not be empty")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, "watch.debounce must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.User == "" {
		cfg.User = defaultUser()
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "default"
}
