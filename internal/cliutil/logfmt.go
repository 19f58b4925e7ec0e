package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/Paintersrp/procsup/internal/supervisor"
)

// LogRecord represents a structured supervisor event ready for JSON encoding.
type LogRecord struct {
	Timestamp time.Time `json:"ts"`
	Process   uint64    `json:"process,omitempty"`
	PID       int       `json:"pid,omitempty"`
	Type      string    `json:"type"`
	Level     string    `json:"level"`
	Message   string    `json:"msg"`
	Error     string    `json:"error,omitempty"`
}

// NewLogRecord converts a supervisor event into a structured log record.
// Messages are passed through RedactSecrets since they may carry program
// arguments.
func NewLogRecord(event supervisor.Event) LogRecord {
	level := event.Level
	if level == "" {
		if inferred := inferLogLevel(event.Message); inferred != "" {
			level = inferred
		} else {
			level = "info"
		}
	}
	record := LogRecord{
		Timestamp: event.Timestamp,
		Process:   uint64(event.Process),
		PID:       event.PID,
		Type:      string(event.Type),
		Level:     level,
		Message:   RedactSecrets(event.Message),
	}
	if event.Err != nil {
		record.Error = RedactSecrets(event.Err.Error())
	}
	return record
}

var levelTokenPattern = regexp.MustCompile(`(?i)\b(error|warn|info)\b`)

func inferLogLevel(message string) string {
	matches := levelTokenPattern.FindStringSubmatch(message)
	if len(matches) < 2 {
		return ""
	}
	switch strings.ToLower(matches[1]) {
	case "error":
		return "error"
	case "warn":
		return "warn"
	case "info":
		return "info"
	default:
		return ""
	}
}

// EncodeLogEvent encodes an event to JSON, reporting errors to stderr if needed.
func EncodeLogEvent(enc *json.Encoder, stderr io.Writer, event supervisor.Event) {
	if enc == nil {
		return
	}
	record := NewLogRecord(event)
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if err := enc.Encode(&record); err != nil {
		fmt.Fprintf(stderr, "error: encode log: %v\n", err)
	}
}

// WriteTextEvent renders an event as a single human readable line.
func WriteTextEvent(w io.Writer, event supervisor.Event) {
	record := NewLogRecord(event)
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", record.Timestamp.UTC().Format(time.RFC3339), strings.ToUpper(record.Level), record.Type)
	if record.Process != 0 {
		fmt.Fprintf(&b, " process=%d pid=%d", record.Process, record.PID)
	}
	if record.Message != "" {
		b.WriteString(" ")
		b.WriteString(record.Message)
	}
	if record.Error != "" && record.Error != record.Message {
		b.WriteString(" error=")
		b.WriteString(record.Error)
	}
	b.WriteString("\n")
	_, _ = io.WriteString(w, b.String())
}
