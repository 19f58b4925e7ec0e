package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/procsup/internal/api"
)

// exitReportError is returned when a reported process did not exit cleanly.
type exitReportError struct {
	report *api.ExitReport
}

func (e *exitReportError) Error() string {
	return fmt.Sprintf("process %d: %s", e.report.ID, describeReport(e.report))
}

func parseProcessID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid process id %q", raw)
	}
	return id, nil
}

// printReport writes captured output to the command's streams, or the whole
// report as JSON. When strict is set an unsuccessful exit becomes an error.
func printReport(cmd *cobra.Command, report *api.ExitReport, asJSON, strict bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
	} else {
		if report.Stdout != nil {
			_, _ = io.WriteString(out, *report.Stdout)
		}
		if report.Stderr != nil {
			_, _ = io.WriteString(cmd.ErrOrStderr(), *report.Stderr)
		}
	}
	if strict && !report.Success {
		return &exitReportError{report: report}
	}
	return nil
}

func describeReport(report *api.ExitReport) string {
	switch {
	case report == nil:
		return "-"
	case report.ExitCode != nil:
		return fmt.Sprintf("exit code %d", *report.ExitCode)
	case report.Signal != nil:
		return fmt.Sprintf("signal %s (%d)", report.Signal.Name, report.Signal.Number)
	case report.Abnormal != "":
		return "abnormal termination: " + report.Abnormal
	default:
		return "-"
	}
}
