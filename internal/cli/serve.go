package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joacominatel/vizql/internal/bridge"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the command surface over HTTP for a desktop front end",
		Long: `Start the invoke bridge. Front ends call commands with

  POST /invoke/<command>   (JSON arguments in the body)

and receive the JSON result, or a JSON string describing the error.
The pool is opened by the first connect_db_pool call and shared by every
later request until the process exits.`,
		Example: `  vizql serve
  vizql serve --addr 127.0.0.1:9000
  curl -d '{"dbname":"app","user":"me","password":"","host":"localhost","port":"5432"}' \
       localhost:7878/invoke/connect_db_pool`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := opts.openSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			if addr == "" {
				addr = s.cfg.Bridge.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if opts.dsn != "" || opts.profile != "" {
				if err := s.connect(ctx, opts); err != nil {
					return err
				}
			}

			srv := bridge.NewServer(bridge.Config{
				Commands: s.commands,
				Addr:     addr,
				Logger:   s.logger,
			})
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:7878)")
	return cmd
}
