package cli

import (
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-avrocontract/internal/version"
	"github.com/goliatone/go-avrocontract/pkg/transport/httpapi"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the plugin API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if s := strings.TrimSpace(addr); s != "" {
				a.cfg.Server.Addr = s
			}
			logger := a.cfg.NewLogger(cmd.ErrOrStderr())

			srv, err := httpapi.New(a.service,
				httpapi.WithLogger(logger),
				httpapi.WithRequestIDHeader(a.cfg.Server.RequestIDHeader),
				httpapi.WithValidation(*a.cfg.Server.Validate),
				httpapi.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logger.Info("starting plugin server",
				slog.String("plugin", a.cfg.Plugin.Name),
				slog.String("plugin_version", a.cfg.Plugin.Version),
				slog.String("build", version.Get().Version),
			)
			return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
