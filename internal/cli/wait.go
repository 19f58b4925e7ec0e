package cli

import (
	"time"

	"github.com/spf13/cobra"
)

func newWaitCmd(ctx *context) *cobra.Command {
	var (
		timeout time.Duration
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "wait ID",
		Short: "Block until a process exits and print its output",
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
			report, err := c.Wait(cmd.Context(), id, timeout)
			if err != nil {
				return err
			}
			return printReport(cmd, report, asJSON, true)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up waiting after this long (the process keeps running)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the exit report as JSON")
	return cmd
}
