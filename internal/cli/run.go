package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/procsup/internal/api"
)

func newRunCmd(ctx *context) *cobra.Command {
	var (
		captureStdout bool
		captureStderr bool
		wait          bool
		timeout       time.Duration
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "run [flags] -- PROGRAM [ARGS...]",
		Short: "Spawn a process on the control server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			req := api.CreateRequest{Exec: args[0], Args: args[1:]}
			if captureStdout || captureStderr {
				req.Capture = &api.CaptureOptions{Stdout: captureStdout, Stderr: captureStderr}
			}
			created, err := c.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			if !wait {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\n", created.ID)
				return nil
			}
			report, err := c.Wait(cmd.Context(), created.ID, timeout)
			if err != nil {
				return err
			}
			return printReport(cmd, report, asJSON, true)
		},
	}
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().BoolVar(&captureStdout, "capture-stdout", false, "Buffer stdout on the server instead of inheriting it")
	cmd.Flags().BoolVar(&captureStderr, "capture-stderr", false, "Buffer stderr on the server instead of inheriting it")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the process to exit and print its captured output")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up waiting after this long (the process keeps running)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the exit report as JSON")
	return cmd
}
