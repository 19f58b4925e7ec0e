package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newKillCmd(ctx *context) *cobra.Command {
	var (
		timeout time.Duration
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "kill ID",
		Short: "Terminate a process and print its exit report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProcessID(args[0])
			if err != nil {
				return err
			}
			c, err := ctx.client()
			if err != nil {
				return err
			}
			report, err := c.Kill(cmd.Context(), id, timeout)
			if err != nil {
				return err
			}
			if err := printReport(cmd, report, asJSON, false); err != nil {
				return err
			}
			if !asJSON {
				fmt.Fprintf(cmd.ErrOrStderr(), "process %d: %s\n", report.ID, describeReport(report))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up waiting for the exit after this long")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the exit report as JSON")
	return cmd
}
