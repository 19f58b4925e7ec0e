package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Paintersrp/procsup/internal/tui"
)

func newTuiCmd(ctx *context) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch the interactive process table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !supportsInteractiveOutput(cmd) {
				return fmt.Errorf("tui requires an interactive terminal")
			}

			c, err := ctx.client()
			if err != nil {
				return err
			}
			ui := tui.New(c, tui.WithPollInterval(interval))
			return ui.Run(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Refresh interval for the process list")

	return cmd
}

func supportsInteractiveOutput(cmd *cobra.Command) bool {
	out, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(out.Fd()))
}
