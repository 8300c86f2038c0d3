// Package cli implements the geosync command line client.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Wyydra/geosync/internal/logging"
	"github.com/spf13/cobra"
)

const (
	defaultServer = "ws://localhost:5000/ws"
	envServer     = "GEOSYNC_SERVER"
)

type options struct {
	server   string
	lat      string
	lng      string
	logLevel string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "geosync",
		Short: "Share a live map view through a geosync relay",
		Long: `geosync joins a relay room as the tracker, streaming its map view, or as the
tracked side, following the tracker's view.

Examples:
  geosync track family --lat 48.8566 --lng 2.3522
  geosync follow family`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Init(logging.Config{
				Level:  opts.logLevel,
				Format: "console",
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.server, "server", "s", "", "relay websocket URL (env "+envServer+")")
	root.PersistentFlags().StringVar(&opts.lat, "lat", "", "starting latitude (env GEOSYNC_LAT)")
	root.PersistentFlags().StringVar(&opts.lng, "lng", "", "starting longitude (env GEOSYNC_LNG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(newTrackCmd(opts), newFollowCmd(opts))
	return root
}

// serverURL resolves the relay address: flag, then environment, then default.
func (o *options) serverURL() string {
	if o.server != "" {
		return o.server
	}
	if s := os.Getenv(envServer); s != "" {
		return s
	}
	return defaultServer
}

// Execute runs the command tree until it finishes or the process is
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		newPrinter(root.ErrOrStderr()).Error(err)
		stop()
		os.Exit(1)
	}
}
