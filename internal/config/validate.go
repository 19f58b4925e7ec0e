package config

import (
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/docker/go-connections/nat"

	"github.com/Paintersrp/procsup/internal/supervisor"
)

// Validate checks field values that the schema cannot express.
func (c *Config) Validate() error {
	if err := validateListen(c.Listen); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if _, err := supervisor.ParseSignal(c.KillSignal); err != nil {
		return fmt.Errorf("killSignal: %w", err)
	}
	for field, d := range map[string]Duration{
		"readHeaderTimeout": c.ReadHeaderTimeout,
		"shutdownTimeout":   c.ShutdownTimeout,
		"ioWaitDelay":       c.IOWaitDelay,
	} {
		if d.Duration < 0 {
			return fmt.Errorf("%s: must not be negative", field)
		}
	}
	if c.CaptureWarnThreshold < 0 {
		return fmt.Errorf("captureWarnThreshold: must not be negative")
	}
	if c.EventBuffer < 1 {
		return fmt.Errorf("eventBuffer: must be at least 1")
	}
	switch c.LogFormat {
	case LogFormatJSON, LogFormatText:
	default:
		return fmt.Errorf("logFormat: unsupported format %q (want %s or %s)", c.LogFormat, LogFormatJSON, LogFormatText)
	}
	return nil
}

// Signal resolves KillSignal.
func (c *Config) Signal() (syscall.Signal, error) {
	return supervisor.ParseSignal(c.KillSignal)
}

func validateListen(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return fmt.Errorf("address is required")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if host != "" && net.ParseIP(host) == nil && strings.ContainsAny(host, " /") {
		return fmt.Errorf("invalid host %q", host)
	}
	if port == "" {
		return fmt.Errorf("port must be specified")
	}
	if _, err := nat.ParsePort(port); err != nil {
		return fmt.Errorf("invalid port %q: %w", port, err)
	}
	return nil
}
