package config

import (
	"os"
	"path/filepath"
	"testing"
)

// unsetEnvForTest clears an environment variable for the duration of the
// test, restoring it afterwards.
func unsetEnvForTest(t *testing.T, key string) {
	t.Helper()

	if value, ok := os.LookupEnv(key); ok {
		t.Setenv(key, value)
	}

	os.Unsetenv(key)
}

func isolate(t *testing.T) {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	for _, key := range []string{
		"ORDEAL_OUTPUT_VERBOSE",
		"ORDEAL_OUTPUT_QUIET",
		"ORDEAL_LOG_LEVEL",
		"ORDEAL_LOG_FILE",
		"ORDEAL_LOG_STDERR",
		"ORDEAL_TELEMETRY_ENABLED",
		"ORDEAL_TELEMETRY_ENDPOINT",
	} {
		unsetEnvForTest(t, key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg := Load()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"verbose", cfg.Verbose(), false},
		{"quiet", cfg.Quiet(), false},
		{"log level", cfg.LogLevel(), "info"},
		{"log file", cfg.LogFile(), ""},
		{"log stderr", cfg.LogStderr(), "off"},
		{"telemetry enabled", cfg.TelemetryEnabled(), false},
		{"telemetry endpoint", cfg.TelemetryEndpoint(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)

	t.Setenv("ORDEAL_OUTPUT_QUIET", "true")
	t.Setenv("ORDEAL_LOG_LEVEL", "debug")
	t.Setenv("ORDEAL_LOG_FILE", "auto")

	cfg := Load()

	if !cfg.Quiet() {
		t.Error("Quiet() = false, want env override to apply")
	}

	if got := cfg.LogLevel(); got != "debug" {
		t.Errorf("LogLevel() = %q, want %q", got, "debug")
	}

	if got := cfg.LogFile(); got != "auto" {
		t.Errorf("LogFile() = %q, want %q", got, "auto")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	isolate(t)

	cfgDir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "ordeal")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}

	content := "output:\n  verbose: true\nlog:\n  level: warn\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load()

	if !cfg.Verbose() {
		t.Error("Verbose() = false, want config file value")
	}

	if got := cfg.LogLevel(); got != "warn" {
		t.Errorf("LogLevel() = %q, want %q", got, "warn")
	}
}

func TestLoad_EnvBeatsConfigFile(t *testing.T) {
	isolate(t)

	cfgDir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "ordeal")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte("log:\n  level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ORDEAL_LOG_LEVEL", "error")

	cfg := Load()

	if got := cfg.LogLevel(); got != "error" {
		t.Errorf("LogLevel() = %q, want the env var to win", got)
	}
}

func TestAll(t *testing.T) {
	isolate(t)

	settings := Load().All()

	if _, ok := settings["log"]; !ok {
		t.Errorf("All() = %v, want the log section present", settings)
	}
}
