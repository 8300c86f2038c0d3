package port

import (
	"github.com/Wyydra/geosync/internal/core/domain"
)

// RoomRepository is the role-occupancy table. Implementations must never
// keep an empty room: Save of an empty room is the caller's bug, and callers
// delete instead.
type RoomRepository interface {
	Get(id domain.RoomID) (domain.Room, bool)
	Save(room domain.Room)
	Delete(id domain.RoomID)
	List() []domain.Room
	Count() int
}
