package observability

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_NoSinksDiscards(t *testing.T) {
	cfg := &Config{
		Level:      "info",
		LogFile:    "",
		StderrMode: "off",
		SessionID:  "session-test",
	}

	logger, cleanup, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	if logger == nil {
		t.Fatal("NewLogger() returned nil logger")
	}

	// Must not panic, must not write anywhere.
	logger.Info("dropped on the floor")

	if cleanup == nil {
		t.Fatal("NewLogger() returned nil cleanup")
	}

	if err := cleanup(); err != nil {
		t.Fatalf("cleanup() error = %v", err)
	}
}

func TestNewLogger_FileSink(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "ordeal.log")

	cfg := &Config{
		Level:       "info",
		LogFile:     logPath,
		StderrMode:  "off",
		SessionID:   "session-test",
		CommandPath: "ordeal",
		Version:     "test",
		Commit:      "abc123",
	}

	logger, cleanup, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Info("hello from test")

	if err := cleanup(); err != nil {
		t.Fatalf("cleanup() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile(%q) error = %v", logPath, err)
	}

	got := string(data)

	for _, want := range []string{"hello from test", "session.id=session-test", "cli.commit=abc123"} {
		if !strings.Contains(got, want) {
			t.Errorf("log file missing %q:\n%s", want, got)
		}
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, _, err := NewLogger(&Config{Level: "shouty"})
	if err == nil {
		t.Fatal("expected an error for an invalid level")
	}
}

func TestNewLogger_InvalidStderrMode(t *testing.T) {
	_, _, err := NewLogger(&Config{StderrMode: "sometimes"})
	if err == nil {
		t.Fatal("expected an error for an invalid stderr mode")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Leveler
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"  error  ", slog.LevelError, false},
		{"loud", nil, true},
	}

	for _, tt := range tests {
		got, err := parseLevel(tt.in)

		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}

		if !tt.wantErr && got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseStderrMode(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"", false, false},
		{"off", false, false},
		{"false", false, false},
		{"0", false, false},
		{"on", true, false},
		{"true", true, false},
		{"1", true, false},
		{"ON", true, false},
		{"auto", false, true},
	}

	for _, tt := range tests {
		got, err := parseStderrMode(tt.in)

		if (err != nil) != tt.wantErr {
			t.Errorf("parseStderrMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}

		if !tt.wantErr && got != tt.want {
			t.Errorf("parseStderrMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRedaction(t *testing.T) {
	var buf bytes.Buffer

	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{ReplaceAttr: redactAttr})
	logger := slog.New(handler)

	logger.Info("env snapshot",
		slog.String("api_key", "hunter2"),
		slog.String("GITHUB_TOKEN", "ghp_secret"),
		slog.String("test", "harmless"),
	)

	got := buf.String()

	if strings.Contains(got, "hunter2") || strings.Contains(got, "ghp_secret") {
		t.Fatalf("secrets leaked into log: %s", got)
	}

	if !strings.Contains(got, "[REDACTED]") {
		t.Fatalf("expected redaction marker, got: %s", got)
	}

	if !strings.Contains(got, "harmless") {
		t.Fatalf("non-sensitive attr was dropped: %s", got)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"authorization", true},
		{"api_key", true},
		{"github_token", true},
		{"db_password", true},
		{"client_secret", true},
		{"credential_path", true},
		{"test", false},
		{"status", false},
	}

	for _, tt := range tests {
		if got := isSensitiveKey(tt.key); got != tt.want {
			t.Errorf("isSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestLoggerContext(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	ctx := WithLogger(context.Background(), logger)

	if got := FromContext(ctx); got != logger {
		t.Error("FromContext should return the stored logger")
	}

	if got := FromContext(context.Background()); got == nil {
		t.Error("FromContext without a logger should fall back to the default")
	}
}
