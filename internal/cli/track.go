package cli

import (
	"bufio"
	"time"

	"github.com/Wyydra/geosync/internal/client"
	"github.com/Wyydra/geosync/internal/core/domain"
	"github.com/spf13/cobra"
)

func newTrackCmd(opts *options) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:     "track <room-id>",
		Aliases: []string{"t"},
		Short:   "Join a room as the tracker and stream positions read from stdin",
		Long: `Join a room as the tracker. Each stdin line moves the shared view:

  <lat> <lng> [zoom]   pan the map (drag position sent at once, view throttled)
  drag <lat> <lng>     send only the live drag position
  leave                leave the room and exit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd.OutOrStdout())
			sess, err := openSession(cmd.Context(), opts, domain.RoomID(args[0]), domain.RoleTracker, p, interval)
			if err != nil {
				return err
			}
			defer sess.Close()

			p.Snapshot(sess.View())

			lines := make(chan string)
			go func() {
				defer close(lines)
				sc := bufio.NewScanner(cmd.InOrStdin())
				for sc.Scan() {
					select {
					case lines <- sc.Text():
					case <-cmd.Context().Done():
						return
					}
				}
			}()

			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case <-sess.Done():
					return client.ErrClosed
				case line, ok := <-lines:
					if !ok {
						sess.Flush()
						return nil
					}
					in, err := parseInput(line)
					if err != nil {
						p.Error(err)
						continue
					}
					if in.kind == inputLeave {
						sess.Flush()
						return nil
					}
					if err := apply(sess, in); err != nil {
						return err
					}
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", client.DefaultMoveInterval, "minimum time between forwarded map views")
	return cmd
}

// apply does what a map pan does: the drag position goes out at once and
// the full view follows through the throttle.
func apply(sess *client.Session, in input) error {
	switch in.kind {
	case inputDrag:
		return sess.Drag(in.pos)
	case inputMove:
		zoom := sess.View().Center.Zoom
		if in.hasZoom {
			zoom = in.zoom
		}
		if err := sess.Drag(in.pos); err != nil {
			return err
		}
		return sess.Move(domain.MapView{Lat: in.pos.Lat, Lng: in.pos.Lng, Zoom: zoom})
	}
	return nil
}
