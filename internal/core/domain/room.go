package domain

import "fmt"

// Room holds at most one tracker and one tracked connection. An empty
// ConnID means the slot is free.
type Room struct {
	ID      RoomID
	Tracker ConnID
	Tracked ConnID
}

func NewRoom(id RoomID) Room {
	return Room{ID: id}
}

// Holder returns the connection occupying role, or "" when the slot is free.
func (r Room) Holder(role Role) ConnID {
	switch role {
	case RoleTracker:
		return r.Tracker
	case RoleTracked:
		return r.Tracked
	}
	return ""
}

// Assign puts id in the role slot. It fails if the slot is already taken,
// leaving the room untouched.
func (r *Room) Assign(role Role, id ConnID) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if r.Holder(role) != "" {
		return fmt.Errorf("%w: %s in room %s", ErrRoleTaken, role, r.ID)
	}
	if role == RoleTracker {
		r.Tracker = id
	} else {
		r.Tracked = id
	}
	return nil
}

// Release frees the role slot if it is held by id and reports whether it did.
func (r *Room) Release(role Role, id ConnID) bool {
	switch {
	case role == RoleTracker && r.Tracker == id && id != "":
		r.Tracker = ""
		return true
	case role == RoleTracked && r.Tracked == id && id != "":
		r.Tracked = ""
		return true
	}
	return false
}

// RolesOf lists the roles id holds in this room.
func (r Room) RolesOf(id ConnID) []Role {
	var roles []Role
	if id == "" {
		return roles
	}
	if r.Tracker == id {
		roles = append(roles, RoleTracker)
	}
	if r.Tracked == id {
		roles = append(roles, RoleTracked)
	}
	return roles
}

func (r Room) IsTracker(id ConnID) bool {
	return id != "" && r.Tracker == id
}

func (r Room) Full() bool {
	return r.Tracker != "" && r.Tracked != ""
}

func (r Room) Empty() bool {
	return r.Tracker == "" && r.Tracked == ""
}
