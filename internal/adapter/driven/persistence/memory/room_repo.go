package memory

import (
	"cmp"
	"slices"

	"github.com/Wyydra/geosync/internal/core/domain"
)

// RoomRepository keeps rooms in a map. It is not safe for concurrent use;
// the room service owns it from a single goroutine.
type RoomRepository struct {
	rooms map[domain.RoomID]domain.Room
}

func NewRoomRepository() *RoomRepository {
	return &RoomRepository{
		rooms: make(map[domain.RoomID]domain.Room),
	}
}

func (r *RoomRepository) Get(id domain.RoomID) (domain.Room, bool) {
	room, ok := r.rooms[id]
	return room, ok
}

func (r *RoomRepository) Save(room domain.Room) {
	r.rooms[room.ID] = room
}

func (r *RoomRepository) Delete(id domain.RoomID) {
	delete(r.rooms, id)
}

// List returns the rooms ordered by id.
func (r *RoomRepository) List() []domain.Room {
	out := make([]domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	slices.SortFunc(out, func(a, b domain.Room) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (r *RoomRepository) Count() int {
	return len(r.rooms)
}
