package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	herrors "github.com/vinayprograms/simhost/errors"
	"github.com/vinayprograms/simhost/logging"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Time.TicRate != 35 || cfg.Time.Scale != 100 || cfg.Time.FastDemo {
		t.Errorf("unexpected time defaults: %+v", cfg.Time)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "simhost.toml", `
[time]
ticrate = 70
scale = 50

[log]
level = "debug"

[telemetry]
protocol = "file"
endpoint = "/tmp/simhost.jsonl"

[telemetry.tracing]
endpoint = "localhost:4317"
insecure = true

[net]
solo = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Time.TicRate != 70 || cfg.Time.Scale != 50 {
		t.Errorf("time = %+v", cfg.Time)
	}
	if cfg.LogLevel() != logging.LevelDebug {
		t.Errorf("LogLevel() = %s", cfg.LogLevel())
	}
	if cfg.Telemetry.Tracing.Protocol != "grpc" {
		t.Errorf("tracing protocol should keep default, got %q", cfg.Telemetry.Tracing.Protocol)
	}
	if !cfg.Telemetry.Tracing.Insecure || !cfg.Net.Solo {
		t.Errorf("expected insecure tracing and solo: %+v", cfg)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "simhost.yml", `
time:
  fast_demo: true
net:
  solo: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Time.FastDemo || !cfg.Net.Solo {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Time.TicRate != 35 {
		t.Errorf("ticrate should keep default, got %d", cfg.Time.TicRate)
	}
}

func TestParseYAMLEmpty(t *testing.T) {
	cfg, err := ParseYAML(nil)
	if err != nil {
		t.Fatalf("ParseYAML(nil) error = %v", err)
	}
	if cfg != Default() {
		t.Errorf("empty document should yield defaults, got %+v", cfg)
	}
}

func TestLoadUnknownKeys(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad.toml", "[time]\ntickrate = 35\n"},
		{"bad.yaml", "time:\n  tickrate: 35\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.name, tt.content))
			if err == nil {
				t.Fatal("expected error for unknown key")
			}
			if !herrors.Is(err, herrors.ErrCodeInvalidConfig) {
				t.Errorf("expected INVALID_CONFIG, got %v", herrors.Code(err))
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	_, err := Load(writeFile(t, "simhost.ini", "x=1"))
	if !herrors.Is(err, herrors.ErrCodeUnsupported) {
		t.Errorf("expected UNSUPPORTED, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"ticrate", func(c *Config) { c.Time.TicRate = 0 }},
		{"scale", func(c *Config) { c.Time.Scale = 0 }},
		{"level", func(c *Config) { c.Log.Level = "loud" }},
		{"telemetry protocol", func(c *Config) { c.Telemetry.Protocol = "kafka" }},
		{"file without path", func(c *Config) { c.Telemetry.Protocol = "file" }},
		{"tracing protocol", func(c *Config) { c.Telemetry.Tracing.Protocol = "udp" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !herrors.Is(err, herrors.ErrCodeInvalidConfig) {
				t.Errorf("expected INVALID_CONFIG, got %v", err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SIMHOST_TIME_SCALE", "200")
	t.Setenv("SIMHOST_NET_SOLO", "true")
	t.Setenv("SIMHOST_TELEMETRY_TRACING_ENDPOINT", "collector:4318")

	cfg := Default()
	cfg.Time.TicRate = 70
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}
	if cfg.Time.Scale != 200 {
		t.Errorf("scale = %d, want 200", cfg.Time.Scale)
	}
	if cfg.Time.TicRate != 70 {
		t.Errorf("unset variable changed ticrate to %d", cfg.Time.TicRate)
	}
	if !cfg.Net.Solo {
		t.Error("expected solo from env")
	}
	if cfg.Telemetry.Tracing.Endpoint != "collector:4318" {
		t.Errorf("tracing endpoint = %q", cfg.Telemetry.Tracing.Endpoint)
	}
}

func TestApplyEnvError(t *testing.T) {
	t.Setenv("SIMHOST_TIME_TICRATE", "fast")

	cfg := Default()
	err := ApplyEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env") {
		t.Errorf("expected parse env prefix, got %v", err)
	}
}

func TestLoadWithEnv(t *testing.T) {
	path := writeFile(t, "simhost.toml", "[time]\nscale = 50\n")
	t.Setenv("SIMHOST_TIME_SCALE", "0")

	_, err := LoadWithEnv(path)
	if !herrors.Is(err, herrors.ErrCodeInvalidConfig) {
		t.Errorf("env override should be validated, got %v", err)
	}
}

func TestDiscoverNone(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	cfg, path, err := Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if path != "" || cfg != Default() {
		t.Errorf("expected defaults with no path, got %q %+v", path, cfg)
	}
}
