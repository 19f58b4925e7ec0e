package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-units"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "procsup.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
listen: 0.0.0.0:9000
readHeaderTimeout: 2s
shutdownTimeout: 1m30s
killSignal: SIGTERM
ioWaitDelay: 250ms
captureWarnThreshold: 8MiB
eventBuffer: 32
logFormat: text
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" {
		t.Fatalf("unexpected listen %q", cfg.Listen)
	}
	if cfg.ReadHeaderTimeout.Duration != 2*time.Second {
		t.Fatalf("unexpected readHeaderTimeout %s", cfg.ReadHeaderTimeout.Duration)
	}
	if cfg.ShutdownTimeout.Duration != 90*time.Second {
		t.Fatalf("unexpected shutdownTimeout %s", cfg.ShutdownTimeout.Duration)
	}
	if cfg.IOWaitDelay.Duration != 250*time.Millisecond || !cfg.IOWaitDelay.IsSet() {
		t.Fatalf("unexpected ioWaitDelay %+v", cfg.IOWaitDelay)
	}
	if cfg.CaptureWarnThreshold != 8*units.MiB {
		t.Fatalf("unexpected captureWarnThreshold %d", cfg.CaptureWarnThreshold)
	}
	if cfg.EventBuffer != 32 || cfg.LogFormat != LogFormatText {
		t.Fatalf("unexpected event settings %+v", cfg)
	}
	if cfg.KillSignal != "SIGTERM" {
		t.Fatalf("unexpected kill signal %q", cfg.KillSignal)
	}
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "eventBuffer: 8\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	def := Default()
	if cfg.Listen != def.Listen || cfg.KillSignal != def.KillSignal {
		t.Fatalf("expected defaults to survive, got %+v", cfg)
	}
	if cfg.CaptureWarnThreshold != def.CaptureWarnThreshold {
		t.Fatalf("expected default threshold, got %d", cfg.CaptureWarnThreshold)
	}
	if cfg.EventBuffer != 8 {
		t.Fatalf("expected eventBuffer 8, got %d", cfg.EventBuffer)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeConfig(t, "\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Listen != Default().Listen {
		t.Fatalf("expected default listen, got %q", cfg.Listen)
	}
}

func TestLoadMissingDefaultFileIsNotAnError(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected defaults when %s is absent, got %v", DefaultPath, err)
	}
	if cfg.LogFormat != LogFormatJSON {
		t.Fatalf("unexpected log format %q", cfg.LogFormat)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
	if !strings.Contains(err.Error(), "open config file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "listen: 127.0.0.1:9000\nlogFormat: text\n")
	t.Setenv("PROCSUP_LISTEN", "127.0.0.1:9100")
	t.Setenv("PROCSUP_KILL_SIGNAL", "15")
	t.Setenv("PROCSUP_IO_WAIT_DELAY", "3s")
	t.Setenv("PROCSUP_CAPTURE_WARN_THRESHOLD", "1KiB")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Listen != "127.0.0.1:9100" {
		t.Fatalf("expected env listen override, got %q", cfg.Listen)
	}
	if cfg.LogFormat != LogFormatText {
		t.Fatalf("expected file value to survive, got %q", cfg.LogFormat)
	}
	if cfg.KillSignal != "15" {
		t.Fatalf("expected env kill signal, got %q", cfg.KillSignal)
	}
	if cfg.IOWaitDelay.Duration != 3*time.Second {
		t.Fatalf("expected env io wait delay, got %s", cfg.IOWaitDelay.Duration)
	}
	if cfg.CaptureWarnThreshold != 1024 {
		t.Fatalf("expected env threshold, got %d", cfg.CaptureWarnThreshold)
	}
}

func TestLoadEnvironmentInvalidValue(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PROCSUP_SHUTDOWN_TIMEOUT", "soon")

	_, err := Load("")
	if err == nil {
		t.Fatalf("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "environment") {
		t.Fatalf("expected environment error, got %v", err)
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "listen: 127.0.0.1:9000\nlistenAddr: nope\n")

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected error for unknown field")
	}
	if !strings.Contains(err.Error(), "listenAddr") {
		t.Fatalf("expected error to name the unknown field, got %v", err)
	}
}

func TestLoadSchemaValidation(t *testing.T) {
	cases := []struct {
		name     string
		contents string
		want     string
	}{
		{name: "bad log format", contents: "logFormat: xml\n", want: "logFormat"},
		{name: "bad event buffer", contents: "eventBuffer: 0\n", want: "eventBuffer"},
		{name: "bad duration", contents: "shutdownTimeout: forever\n", want: "shutdownTimeout"},
		{name: "bad size", contents: "captureWarnThreshold: lots\n", want: "captureWarnThreshold"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.contents))
			if err == nil {
				t.Fatalf("expected schema error")
			}
			msg := err.Error()
			if !strings.Contains(msg, "schema validation failed") || !strings.Contains(msg, tc.want) {
				t.Fatalf("unexpected error %q, want mention of %q", msg, tc.want)
			}
		})
	}
}
