package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/Wyydra/geosync/internal/client"
	"github.com/Wyydra/geosync/internal/core/domain"
	"github.com/rs/zerolog/log"
)

const joinTimeout = 10 * time.Second

func (o *options) locator() client.Locator {
	if o.lat != "" || o.lng != "" {
		return client.FixedLocator{Lat: o.lat, Lng: o.lng}
	}
	return client.EnvLocator{}
}

// openSession locates, connects and joins. Every step is attempted once.
func openSession(ctx context.Context, o *options, roomID domain.RoomID, role domain.Role, p *printer, interval time.Duration) (*client.Session, error) {
	if roomID == "" {
		return nil, client.ErrRoomRequired
	}

	origin, err := o.locator().Locate(ctx)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	conn, err := client.Dial(dialCtx, o.serverURL())
	if err != nil {
		return nil, err
	}
	log.Debug().Str("server", o.serverURL()).Msg("Connected to relay")

	sess := client.NewSession(conn, origin, client.SessionOptions{
		MoveInterval: interval,
		OnChange:     p.Snapshot,
	})
	if err := sess.Join(dialCtx, roomID, role); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("join %s as %s: %w", roomID, role, err)
	}
	return sess, nil
}
