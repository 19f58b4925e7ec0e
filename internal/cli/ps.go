package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/procsup/internal/api"
	"github.com/Paintersrp/procsup/internal/cliutil"
)

func newPsCmd(ctx *context) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List processes known to the control server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			list, err := c.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPID\tSTATE\tAGE\tOUTCOME\tSTDOUT\tSTDERR\tCOMMAND")
			now := time.Now()
			for _, proc := range list.Processes {
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					proc.ID,
					proc.PID,
					proc.State,
					formatAge(proc, now),
					formatOutcome(proc.Exit),
					formatCapture(proc.Capture.Stdout, proc.Stdout),
					formatCapture(proc.Capture.Stderr, proc.Stderr),
					cliutil.RedactSecrets(strings.Join(append([]string{proc.Exec}, proc.Args...), " ")),
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the process list as JSON")
	return cmd
}

func formatAge(proc api.ProcessStatus, now time.Time) string {
	if proc.StartedAt.IsZero() {
		return "-"
	}
	end := now
	if proc.Exit != nil && !proc.Exit.ExitedAt.IsZero() {
		end = proc.Exit.ExitedAt
	}
	age := end.Sub(proc.StartedAt)
	if age < 0 {
		age = 0
	}
	return age.Truncate(time.Second).String()
}

func formatOutcome(report *api.ExitReport) string {
	switch {
	case report == nil:
		return "-"
	case report.ExitCode != nil:
		return fmt.Sprintf("exit %d", *report.ExitCode)
	case report.Signal != nil:
		return report.Signal.Name
	default:
		return "abnormal"
	}
}

func formatCapture(captured bool, data *string) string {
	if !captured {
		return "inherit"
	}
	if data == nil {
		return units.BytesSize(0)
	}
	return units.BytesSize(float64(len(*data)))
}
