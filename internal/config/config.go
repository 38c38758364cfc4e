// Package config loads fileconv settings from a YAML file, FILECONV_*
// environment variables and built-in defaults, in decreasing precedence
// after explicit flags.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nicholasgasior/fileconv"
)

// EnvPrefix is the prefix of environment variables that override settings.
const EnvPrefix = "FILECONV"

// Config is the complete runtime configuration.
type Config struct {
	Log      LogConfig                   `mapstructure:"log" yaml:"log"`
	Engine   EngineConfig                `mapstructure:"engine" yaml:"engine"`
	Registry []fileconv.FormatCapability `mapstructure:"registry" yaml:"registry,omitempty"`
	Watch    WatchConfig                 `mapstructure:"watch" yaml:"watch"`
	Admin    AdminConfig                 `mapstructure:"admin" yaml:"admin"`
}

// LogConfig configures the base logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// EngineConfig maps onto fileconv engine options.
type EngineConfig struct {
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Overwrite   bool          `mapstructure:"overwrite" yaml:"overwrite"`
	Workers     int           `mapstructure:"workers" yaml:"workers"`
	JPEGQuality int           `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
	MaxPixels   int           `mapstructure:"max_pixels" yaml:"max_pixels"`
}

// WatchConfig configures the hot-folder daemon.
type WatchConfig struct {
	In       string        `mapstructure:"in" yaml:"in"`
	Out      string        `mapstructure:"out" yaml:"out"`
	Target   string        `mapstructure:"target" yaml:"target"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// AdminConfig configures the metrics and health endpoint.
type AdminConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// SetDefaults registers every key with its default so environment
// variables are honored for keys absent from the file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("engine.timeout", time.Duration(0))
	v.SetDefault("engine.overwrite", false)
	v.SetDefault("engine.workers", runtime.NumCPU())
	v.SetDefault("engine.jpeg_quality", fileconv.DefaultJPEGQuality)
	v.SetDefault("engine.max_pixels", fileconv.DefaultMaxPixels)
	v.SetDefault("watch.in", "")
	v.SetDefault("watch.out", "")
	v.SetDefault("watch.target", "")
	v.SetDefault("watch.debounce", 500*time.Millisecond)
	v.SetDefault("admin.addr", "")
}

// New returns a viper instance with defaults and environment binding
// applied. If path is empty no file is read.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

// Load reads the file at path (optional) and returns the validated Config.
func Load(path string) (Config, error) {
	v, err := New(path)
	if err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges. It does not touch the filesystem.
func (c Config) Validate() error {
	var errs []error
	if c.Engine.Timeout < 0 {
		errs = append(errs, fmt.Errorf("engine.timeout must not be negative"))
	}
	if c.Engine.Workers < 0 {
		errs = append(errs, fmt.Errorf("engine.workers must not be negative"))
	}
	if c.Engine.JPEGQuality < 1 || c.Engine.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("engine.jpeg_quality %d out of range 1-100", c.Engine.JPEGQuality))
	}
	if c.Engine.MaxPixels <= 0 {
		errs = append(errs, fmt.Errorf("engine.max_pixels must be positive"))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must not be negative"))
	}
	if _, err := c.BuildRegistry(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// BuildRegistry returns the configured registry, or the default one when
// the file declares none.
func (c Config) BuildRegistry() (*fileconv.Registry, error) {
	if len(c.Registry) == 0 {
		return fileconv.DefaultRegistry(), nil
	}
	return fileconv.NewRegistry(c.Registry...)
}

// EngineOptions translates the engine section into fileconv options.
func (c Config) EngineOptions() ([]fileconv.Option, error) {
	reg, err := c.BuildRegistry()
	if err != nil {
		return nil, err
	}
	return []fileconv.Option{
		fileconv.WithRegistry(reg),
		fileconv.WithTimeout(c.Engine.Timeout),
		fileconv.WithOverwrite(c.Engine.Overwrite),
		fileconv.WithJPEGQuality(c.Engine.JPEGQuality),
		fileconv.WithMaxPixels(c.Engine.MaxPixels),
	}, nil
}
