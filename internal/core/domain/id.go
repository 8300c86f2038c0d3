package domain

import (
	"github.com/google/uuid"
)

// ConnID identifies a single transport connection for its lifetime.
type ConnID string

// RoomID is the opaque key shared by the tracker and tracked sides of a room.
type RoomID string

func NewConnID() ConnID {
	return ConnID(uuid.New().String())
}

func (id ConnID) String() string {
	return string(id)
}

func (id RoomID) String() string {
	return string(id)
}
