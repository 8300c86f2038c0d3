package domain

import "errors"

var (
	ErrRoleTaken    = errors.New("role already taken")
	ErrInvalidRole  = errors.New("invalid role")
	ErrInvalidRoom  = errors.New("invalid room id")
	ErrRoomNotFound = errors.New("room not found")
	ErrNotTracker   = errors.New("sender is not the room tracker")
)

// ConflictMessage is the user-visible text sent back when a join targets an
// occupied role.
func ConflictMessage(role Role) string {
	switch role {
	case RoleTracker:
		return "Tracker already exists in this room."
	case RoleTracked:
		return "Tracked already exists in this room."
	}
	return "Role already exists in this room."
}
