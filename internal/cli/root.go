package cli

import (
	stdcontext "context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/procsup/internal/api/client"
	"github.com/Paintersrp/procsup/internal/config"
)

func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *context) {
	var configFile string
	addr := addrFromEnv()

	root := &cobra.Command{
		Use:   "procsup",
		Short: "Spawn, wait on and kill processes through an HTTP control API",
	}

	root.PersistentFlags().
		StringVarP(&configFile, "config", "c", "", "Path to the daemon config file (defaults to "+config.DefaultPath+" when present)")
	root.PersistentFlags().StringVar(&addr, "addr", addr, "Address of the procsup control API")

	ctx := &context{configFile: &configFile, addr: &addr}
	root.AddCommand(newServeCmd(ctx))
	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newWaitCmd(ctx))
	root.AddCommand(newKillCmd(ctx))
	root.AddCommand(newPsCmd(ctx))
	root.AddCommand(newTuiCmd(ctx))
	root.AddCommand(newConfigCmd(ctx))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, ctx
}

// Execute runs the CLI entrypoint.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type context struct {
	configFile *string
	addr       *string
}

func (c *context) loadConfig() (*config.Config, error) {
	return config.Load(*c.configFile)
}

func (c *context) configPath() string {
	if *c.configFile != "" {
		return *c.configFile
	}
	return config.DefaultPath
}

func (c *context) client() (*client.Client, error) {
	return client.New(*c.addr)
}

func addrFromEnv() string {
	if value := strings.TrimSpace(os.Getenv("PROCSUP_ADDR")); value != "" {
		return value
	}
	return client.DefaultAddr
}
