// Package config layers the dashboard settings: built-in defaults, then a
// watt-wealth.yaml file, then WATTWEALTH_* environment variables, then
// command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.sr.ht/~whereswaldon/watt-wealth/backend"
	"git.sr.ht/~whereswaldon/watt-wealth/labels"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	Name      = "watt-wealth"
	EnvPrefix = "WATTWEALTH"
)

// Keys
const (
	KeyConfig   = "config"
	KeyData     = "data"
	KeyInterval = "interval"
	KeyNudge    = "nudge"
	KeySeed     = "seed"
	KeyRecord   = "record"
	KeyReplay   = "replay"
	KeyListen   = "listen"
	KeyLogLevel = "log-level"
)

type Config struct {
	// Data is the path of the mock document. Empty uses built-in data.
	Data     string        `mapstructure:"data"`
	Interval time.Duration `mapstructure:"interval"`
	Nudge    int           `mapstructure:"nudge"`
	Seed     int64         `mapstructure:"seed"`
	// Record and Replay are trace file paths.
	Record   string `mapstructure:"record"`
	Replay   string `mapstructure:"replay"`
	Listen   string `mapstructure:"listen"`
	LogLevel string `mapstructure:"log-level"`
}

// New returns a viper instance with defaults and environment lookup set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyData, "")
	v.SetDefault(KeyInterval, backend.DefaultInterval)
	v.SetDefault(KeyNudge, labels.DefaultNudge)
	v.SetDefault(KeySeed, 0)
	v.SetDefault(KeyRecord, "")
	v.SetDefault(KeyReplay, "")
	v.SetDefault(KeyListen, ":8080")
	v.SetDefault(KeyLogLevel, "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(Name)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, Name))
	}
	return v
}

// Flags registers the command line flags for every key on fs.
func Flags(fs *pflag.FlagSet) {
	fs.String(KeyConfig, "", "configuration file (default ./"+Name+".yaml)")
	fs.StringP(KeyData, "d", "", "mock JSON or YAML document (default built-in data)")
	fs.Duration(KeyInterval, backend.DefaultInterval, "time between live updates")
	fs.Int(KeyNudge, labels.DefaultNudge, "vertical distance in pixels to move overlapping labels")
	fs.Int64(KeySeed, 0, "seed for live updates (0 seeds from the clock)")
	fs.String(KeyRecord, "", "record live readings to this CSV trace")
	fs.String(KeyReplay, "", "replay readings from this CSV trace instead of simulating them")
	fs.String(KeyListen, ":8080", "address for the HTTP server")
	fs.String(KeyLogLevel, "info", "log level (trace, debug, info, warn, error)")
}

// Load reads the configuration file, if any, and decodes the merged
// settings. Flags in fs take precedence over every other layer.
func Load(v *viper.Viper, fs *pflag.FlagSet) (Config, error) {
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, fmt.Errorf("failed binding flags: %w", err)
		}
	}
	if file := v.GetString(KeyConfig); file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed reading config: %w", err)
		}
	} else {
		log.Debugf("using config file %q", v.ConfigFileUsed())
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("failed decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval)
	}
	if c.Nudge < 0 {
		return fmt.Errorf("nudge must not be negative, got %d", c.Nudge)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// ConfigureLogging applies the configured log level to the standard logger.
func (c Config) ConfigureLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warnf("invalid log level %q, keeping %s", c.LogLevel, log.GetLevel())
		return
	}
	log.SetLevel(level)
}

// Datasource opens the record trace, if configured, and builds the
// datasource for c.
func (c Config) Datasource() (*backend.Datasource, error) {
	opts := backend.Options{
		Path:     c.Data,
		Interval: c.Interval,
		Seed:     c.Seed,
	}
	if c.Record != "" {
		f, err := backend.CreateTrace(c.Record)
		if err != nil {
			return nil, err
		}
		opts.Record = f
	}
	return backend.NewDatasource(opts), nil
}
