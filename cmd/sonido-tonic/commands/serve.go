package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-tonic/server"
)

func newServeCommand(g *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve key estimation over HTTP.

Endpoints:
  POST /api/analyze                          audio upload (multipart "audio" field or raw body)
  GET  /api/chords/{key}                       chords, progressions and related keys
  GET  /api/chords/{key}/midi/{progression}    progression as a MIDI file
  GET  /api/profiles                         available key profiles
  GET  /api/schema                           JSON Schema of analysis results
  GET  /healthz

Example:
  sonido-tonic serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			srv, err := server.New(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen address (default from config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")

	return cmd
}
