package port

import (
	"github.com/Wyydra/geosync/internal/core/domain"
)

// Gateway keeps the broadcast groups: which connections receive events
// addressed to a room. It is driven from the room service loop only.
type Gateway interface {
	Join(roomID domain.RoomID, c Client)
	Leave(roomID domain.RoomID, id domain.ConnID)
	// LeaveAll removes id from every group and returns the rooms it was in.
	LeaveAll(id domain.ConnID) []domain.RoomID
	// Emit sends evt to every member of the room except the given id (pass ""
	// to reach everyone) and returns how many members it reached.
	Emit(roomID domain.RoomID, except domain.ConnID, evt domain.Event) int
	Members(roomID domain.RoomID) int
}
