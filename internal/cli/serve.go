package cli

import (
	stdcontext "context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/procsup/internal/api"
	apihttp "github.com/Paintersrp/procsup/internal/api/http"
	"github.com/Paintersrp/procsup/internal/cliutil"
	"github.com/Paintersrp/procsup/internal/config"
	"github.com/Paintersrp/procsup/internal/logmux"
	"github.com/Paintersrp/procsup/internal/supervisor"
)

var newAPIServer = apihttp.NewServer

func newServeCmd(ctx *context) *cobra.Command {
	var (
		listen     string
		logFormat  string
		killOnExit bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the process supervisor with the HTTP control API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}
			if cmd.Flags().Changed("log-format") {
				cfg.LogFormat = logFormat
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			sig, err := cfg.Signal()
			if err != nil {
				return err
			}

			events := logmux.New(cfg.EventBuffer)
			logsDone := make(chan struct{})
			go func() {
				defer close(logsDone)
				writeEvents(cmd.ErrOrStderr(), cfg.LogFormat, events.Output())
			}()
			defer func() {
				events.Close()
				<-logsDone
			}()

			sup := supervisor.New(
				supervisor.WithKillSignal(sig),
				supervisor.WithWaitDelay(cfg.IOWaitDelay.Duration),
				supervisor.WithCaptureWarnThreshold(int64(cfg.CaptureWarnThreshold)),
				supervisor.WithEvents(events),
			)

			server, err := newAPIServer(apihttp.Config{
				Addr:              cfg.Listen,
				Controller:        api.NewSupervisorController(sup),
				ReadHeaderTimeout: cfg.ReadHeaderTimeout.Duration,
				ShutdownTimeout:   cfg.ShutdownTimeout.Duration,
			})
			if err != nil {
				return err
			}

			runCtx := cmd.Context()
			serverCtx, cancel := stdcontext.WithCancel(runCtx)
			defer cancel()
			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Run(serverCtx)
			}()

			readyTimer := time.NewTimer(200 * time.Millisecond)
			defer readyTimer.Stop()
			select {
			case err := <-errCh:
				return serveResult(err)
			case <-readyTimer.C:
			case <-runCtx.Done():
				cancel()
				return serveResult(<-errCh)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Control API listening on %s\n", server.Addr())

			err = serveResult(<-errCh)
			if killOnExit {
				killRunning(sup, cfg.ShutdownTimeout.Duration)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Address for the HTTP control API (overrides config)")
	cmd.Flags().StringVar(&logFormat, "log-format", config.LogFormatJSON, "Event log format: json or text (overrides config)")
	cmd.Flags().BoolVar(&killOnExit, "kill-on-exit", false, "Kill processes still running when the server stops")
	return cmd
}

func serveResult(err error) error {
	if err != nil && !errors.Is(err, stdcontext.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeEvents(w io.Writer, format string, events <-chan supervisor.Event) {
	enc := json.NewEncoder(w)
	for evt := range events {
		if format == config.LogFormatText {
			cliutil.WriteTextEvent(w, evt)
			continue
		}
		cliutil.EncodeLogEvent(enc, w, evt)
	}
}

func killRunning(sup *supervisor.Supervisor, timeout time.Duration) {
	ctx, cancel := stdcontext.WithTimeout(stdcontext.Background(), timeout)
	defer cancel()
	for _, h := range sup.List() {
		if h.State() != supervisor.StateRunning {
			continue
		}
		_, _ = sup.Kill(ctx, h.ID())
	}
}
