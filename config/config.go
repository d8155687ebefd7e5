// Package config loads host configuration from TOML or YAML files with
// environment variable overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	herrors "github.com/vinayprograms/simhost/errors"
	"github.com/vinayprograms/simhost/logging"
	"github.com/vinayprograms/simhost/timesource"
)

// Config is the complete host configuration.
type Config struct {
	Time      TimeConfig      `toml:"time" yaml:"time" envPrefix:"TIME_"`
	Log       LogConfig       `toml:"log" yaml:"log" envPrefix:"LOG_"`
	Telemetry TelemetryConfig `toml:"telemetry" yaml:"telemetry" envPrefix:"TELEMETRY_"`
	Net       NetConfig       `toml:"net" yaml:"net" envPrefix:"NET_"`
}

// TimeConfig configures the simulation time source.
type TimeConfig struct {
	// TicRate is the number of simulation ticks per second.
	TicRate int `toml:"ticrate" yaml:"ticrate" env:"TICRATE"`

	// Scale is the speed percentage; 100 is real time.
	Scale int `toml:"scale" yaml:"scale" env:"SCALE"`

	// FastDemo starts in fast-forward playback.
	FastDemo bool `toml:"fast_demo" yaml:"fast_demo" env:"FAST_DEMO"`
}

// LogConfig configures console logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" yaml:"level" env:"LEVEL"`
}

// TelemetryConfig configures event export and tracing.
type TelemetryConfig struct {
	// Protocol selects the event exporter: noop, file, stderr or http.
	Protocol string `toml:"protocol" yaml:"protocol" env:"PROTOCOL"`

	// Endpoint is the file path or URL for the event exporter.
	Endpoint string `toml:"endpoint" yaml:"endpoint" env:"ENDPOINT"`

	// Tracing configures OpenTelemetry span export. Disabled when
	// Tracing.Endpoint is empty.
	Tracing TracingConfig `toml:"tracing" yaml:"tracing" envPrefix:"TRACING_"`
}

// TracingConfig configures the OTLP span exporter.
type TracingConfig struct {
	// Protocol is grpc or http.
	Protocol string `toml:"protocol" yaml:"protocol" env:"PROTOCOL"`

	// Endpoint is the OTLP collector address, e.g. localhost:4317.
	Endpoint string `toml:"endpoint" yaml:"endpoint" env:"ENDPOINT"`

	// Insecure disables TLS.
	Insecure bool `toml:"insecure" yaml:"insecure" env:"INSECURE"`

	// ServiceName is reported on every span.
	ServiceName string `toml:"service_name" yaml:"service_name" env:"SERVICE_NAME"`
}

// NetConfig carries the networking inputs the host layer consumes.
type NetConfig struct {
	// Solo selects the single-player fallback when no network is available.
	Solo bool `toml:"solo" yaml:"solo" env:"SOLO"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	tc := timesource.DefaultConfig()
	return Config{
		Time: TimeConfig{
			TicRate:  tc.TicRate,
			Scale:    tc.Scale,
			FastDemo: tc.FastDemo,
		},
		Log: LogConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Protocol: "noop",
			Tracing: TracingConfig{
				Protocol: "grpc",
			},
		},
	}
}

// StandardPaths returns the configuration file locations in order of priority.
func StandardPaths() []string {
	paths := []string{"simhost.toml", "simhost.yaml"}

	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths,
			filepath.Join(dir, "simhost", "config.toml"),
			filepath.Join(dir, "simhost", "config.yaml"),
		)
	}

	return paths
}

// Discover loads the first configuration file found in StandardPaths.
// It returns Default and an empty path when none exists.
func Discover() (Config, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			cfg, err := Load(path)
			return cfg, path, err
		}
	}
	return Default(), "", nil
}

// Load reads a configuration file on top of Default. The format is chosen
// by extension: .toml, .yaml or .yml.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, herrors.WrapWithCode(err, herrors.ErrCodeInvalidConfig, "read config",
			herrors.WithMetadata("path", path))
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		cfg, err = ParseTOML(data)
	case ".yaml", ".yml":
		cfg, err = ParseYAML(data)
	default:
		return Config{}, herrors.New(herrors.ErrCodeUnsupported,
			fmt.Sprintf("unsupported config format %q", ext),
			herrors.WithMetadata("path", path),
		)
	}
	if err != nil {
		return Config{}, herrors.Wrap(err, "parse config", herrors.WithMetadata("path", path))
	}
	return cfg, nil
}

// ParseTOML decodes TOML on top of Default. Unknown keys are rejected.
func ParseTOML(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, herrors.InvalidConfig("decode toml", herrors.WithCause(err))
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, herrors.InvalidConfig("unknown keys: " + strings.Join(keys, ", "))
	}
	return cfg, nil
}

// ParseYAML decodes YAML on top of Default. Unknown keys are rejected.
func ParseYAML(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// An empty document leaves the defaults in place.
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return Config{}, herrors.InvalidConfig("decode yaml", herrors.WithCause(err))
	}
	return cfg, nil
}

// TimeSource converts the time section into a time source configuration.
func (c *Config) TimeSource() timesource.Config {
	return timesource.Config{
		TicRate:  c.Time.TicRate,
		Scale:    c.Time.Scale,
		FastDemo: c.Time.FastDemo,
	}
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() logging.Level {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.LevelInfo
	}
	return level
}

// Validate checks the configuration. Errors carry the INVALID_CONFIG code.
func (c *Config) Validate() error {
	tc := c.TimeSource()
	if err := tc.Validate(); err != nil {
		return herrors.InvalidConfig("time", herrors.WithCause(err),
			herrors.WithMetadata("section", "time"))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return herrors.InvalidConfig(err.Error(), herrors.WithMetadata("section", "log"))
	}

	switch c.Telemetry.Protocol {
	case "", "noop", "none", "stderr":
	case "file", "http":
		if c.Telemetry.Endpoint == "" {
			return herrors.InvalidConfig(
				fmt.Sprintf("telemetry protocol %q requires an endpoint", c.Telemetry.Protocol),
				herrors.WithMetadata("section", "telemetry"))
		}
	default:
		return herrors.InvalidConfig(
			fmt.Sprintf("unknown telemetry protocol %q", c.Telemetry.Protocol),
			herrors.WithMetadata("section", "telemetry"))
	}

	switch c.Telemetry.Tracing.Protocol {
	case "", "grpc", "http":
	default:
		return herrors.InvalidConfig(
			fmt.Sprintf("unknown tracing protocol %q", c.Telemetry.Tracing.Protocol),
			herrors.WithMetadata("section", "telemetry.tracing"))
	}

	return nil
}
