package cli

import (
	"testing"

	"github.com/Paintersrp/procsup/internal/api"
)

func TestParseProcessID(t *testing.T) {
	if id, err := parseProcessID(" 42 "); err != nil || id != 42 {
		t.Fatalf("parseProcessID(42) = %d, %v", id, err)
	}
	for _, raw := range []string{"", "0", "-1", "x1"} {
		if _, err := parseProcessID(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestDescribeReport(t *testing.T) {
	code := 3
	tests := []struct {
		name   string
		report *api.ExitReport
		want   string
	}{
		{name: "nil", report: nil, want: "-"},
		{name: "exit", report: &api.ExitReport{ExitCode: &code}, want: "exit code 3"},
		{name: "signal", report: &api.ExitReport{Signal: &api.Signal{Number: 15, Name: "SIGTERM"}}, want: "signal SIGTERM (15)"},
		{name: "abnormal", report: &api.ExitReport{Abnormal: "no status"}, want: "abnormal termination: no status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeReport(tt.report); got != tt.want {
				t.Fatalf("describeReport() = %q, want %q", got, tt.want)
			}
		})
	}
}
