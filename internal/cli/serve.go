package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/harun/handoff/pkg/server"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *options) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve runs over HTTP",
		Long: `Start the HTTP server. POST /v1/runs executes one run per request,
GET /health reports liveness and GET /metrics exposes Prometheus metrics
when metrics are enabled. Stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := a.newRuntime(ctx)
			if err != nil {
				return err
			}
			orch, err := a.newOrchestrator(rt)
			if err != nil {
				return err
			}

			srv, err := server.New(server.Config{
				Host:              a.cfg.Server.Host,
				Port:              a.cfg.Server.Port,
				ReadTimeout:       a.cfg.Server.ReadTimeout,
				ShutdownTimeout:   a.cfg.Server.ShutdownTimeout,
				MaxBodyBytes:      a.cfg.Server.MaxBodyBytes,
				MetricsPath:       a.cfg.Metrics.Path,
				RequestsPerMinute: a.cfg.Server.RequestsPerMinute,
				MaxConcurrentRuns: a.cfg.Server.MaxConcurrentRuns,
				Runner:            orch,
				Metrics:           a.metrics,
				Logger:            a.log.GetZerolog(),
			})
			if err != nil {
				return err
			}

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")

	return cmd
}
