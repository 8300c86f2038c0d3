package port

import "github.com/Wyydra/geosync/internal/core/domain"

// Client is one live connection as seen by the core.
type Client interface {
	ID() domain.ConnID
	Send(evt domain.Event) error
	Close() error
}
