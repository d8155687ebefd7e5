package config

import (
	"github.com/caarlos0/env/v11"

	herrors "github.com/vinayprograms/simhost/errors"
)

// EnvPrefix is prepended to every environment override,
// e.g. SIMHOST_TIME_SCALE or SIMHOST_TELEMETRY_TRACING_ENDPOINT.
const EnvPrefix = "SIMHOST_"

// ApplyEnv overlays environment variables on cfg. Unset variables leave
// the existing values alone.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return herrors.InvalidConfig("parse env", herrors.WithCause(err))
	}
	return nil
}

// LoadWithEnv loads path (or discovers a file when path is empty), applies
// environment overrides and validates the result.
func LoadWithEnv(path string) (Config, error) {
	var (
		cfg Config
		err error
	)
	if path == "" {
		cfg, _, err = Discover()
	} else {
		cfg, err = Load(path)
	}
	if err != nil {
		return Config{}, err
	}

	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
