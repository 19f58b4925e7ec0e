package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/docker/go-units"
)

// DefaultPath is consulted when no config file is named explicitly.
const DefaultPath = "procsup.yaml"

// Duration wraps time.Duration for YAML and environment unmarshalling.
type Duration struct {
	time.Duration
	explicit bool
}

// UnmarshalText parses textual duration values.
func (d *Duration) UnmarshalText(text []byte) error {
	d.explicit = true
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText renders the duration using time.Duration formatting.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsSet reports whether the duration was explicitly provided or non-zero.
func (d Duration) IsSet() bool {
	return d.explicit || d.Duration != 0
}

// Size is a byte count accepting human readable values such as 64MiB.
type Size int64

// UnmarshalText parses sizes with binary multipliers.
func (s *Size) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*s = 0
		return nil
	}
	n, err := units.RAMInBytes(raw)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", raw, err)
	}
	*s = Size(n)
	return nil
}

// MarshalText renders the size in binary units.
func (s Size) MarshalText() ([]byte, error) {
	return []byte(units.BytesSize(float64(s))), nil
}

// Config is the procsup daemon configuration.
type Config struct {
	Listen               string   `yaml:"listen" env:"PROCSUP_LISTEN"`
	ReadHeaderTimeout    Duration `yaml:"readHeaderTimeout" env:"PROCSUP_READ_HEADER_TIMEOUT"`
	ShutdownTimeout      Duration `yaml:"shutdownTimeout" env:"PROCSUP_SHUTDOWN_TIMEOUT"`
	KillSignal           string   `yaml:"killSignal" env:"PROCSUP_KILL_SIGNAL"`
	IOWaitDelay          Duration `yaml:"ioWaitDelay" env:"PROCSUP_IO_WAIT_DELAY"`
	CaptureWarnThreshold Size     `yaml:"captureWarnThreshold" env:"PROCSUP_CAPTURE_WARN_THRESHOLD"`
	EventBuffer          int      `yaml:"eventBuffer" env:"PROCSUP_EVENT_BUFFER"`
	LogFormat            string   `yaml:"logFormat" env:"PROCSUP_LOG_FORMAT"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Listen:               "127.0.0.1:7663",
		ReadHeaderTimeout:    Duration{Duration: 5 * time.Second},
		ShutdownTimeout:      Duration{Duration: 5 * time.Second},
		KillSignal:           "SIGKILL",
		IOWaitDelay:          Duration{Duration: 2 * time.Second},
		CaptureWarnThreshold: 64 * units.MiB,
		EventBuffer:          256,
		LogFormat:            LogFormatJSON,
	}
}

// Log formats understood by the serve command.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)
