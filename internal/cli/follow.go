package cli

import (
	"github.com/Wyydra/geosync/internal/client"
	"github.com/Wyydra/geosync/internal/core/domain"
	"github.com/spf13/cobra"
)

func newFollowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "follow <room-id>",
		Aliases: []string{"f"},
		Short:   "Join a room as the tracked side and print the tracker's view",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter(cmd.OutOrStdout())
			sess, err := openSession(cmd.Context(), opts, domain.RoomID(args[0]), domain.RoleTracked, p, 0)
			if err != nil {
				return err
			}
			defer sess.Close()

			p.Snapshot(sess.View())
			select {
			case <-cmd.Context().Done():
				p.Info("leaving %s", args[0])
				return nil
			case <-sess.Done():
				return client.ErrClosed
			}
		},
	}
}
