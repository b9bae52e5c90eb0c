// Package config loads knolboard settings from flags, environment, .env and
// an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	_ "time/tzdata" // timezone setting must work on hosts without zoneinfo

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix marks environment variables read as configuration.
// KNOLBOARD_API_URL sets api-url.
const EnvPrefix = "KNOLBOARD_"

// Config holds every setting.
type Config struct {
	APIURL      string        `koanf:"api-url" validate:"required,url"`
	DB          string        `koanf:"db" validate:"required"`
	LogLevel    string        `koanf:"log-level" validate:"oneof=debug info warn error"`
	LogFormat   string        `koanf:"log-format" validate:"oneof=text json"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
	RateLimit   float64       `koanf:"rate-limit" validate:"gte=0"`
	WindowDays  int           `koanf:"window-days" validate:"gte=1,lte=365"`
	Timezone    string        `koanf:"timezone"`
	ReposDir    string        `koanf:"repos-dir" validate:"required"`
	MetricsFile string        `koanf:"metrics-file"`
}

// Location resolves Timezone. Empty or "Local" means the system zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// FlagSet returns the global flags with their defaults. Parsing stops at the
// first non-flag argument so subcommands can own the rest.
func FlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.String("config", "", "path to a YAML config file")
	flags.String("env-file", ".env", "path to a .env file; missing files are ignored")
	flags.String("api-url", "http://localhost:8000/api/v1", "backend API root")
	flags.String("db", "knolboard.db", "path to the local SQLite database")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.Duration("timeout", 15*time.Second, "per-request timeout")
	flags.Float64("rate-limit", 0, "max requests per second; 0 disables throttling")
	flags.Int("window-days", 30, "days of history used for streaks")
	flags.String("timezone", "", "IANA zone for dates; defaults to the system zone")
	flags.String("repos-dir", "repos", "where git card sources are checked out")
	flags.String("metrics-file", "", "write Prometheus metrics to this file on exit")
	return flags
}

// Load parses args against flags and merges, lowest priority first: flag
// defaults, the YAML file, the .env file, KNOLBOARD_* variables and flags set
// on the command line. It returns the config and the remaining arguments.
func Load(flags *pflag.FlagSet, args []string) (*Config, []string, error) {
	if err := flags.Parse(args); err != nil {
		return nil, nil, err
	}

	k := koanf.New(".")

	if path, _ := flags.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if path, _ := flags.GetString("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", "-")
	}), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load environment: %w", err)
	}

	// Flags set on the command line always win; defaults only fill gaps.
	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := cfg.Location(); err != nil {
		return nil, nil, err
	}
	return &cfg, flags.Args(), nil
}
