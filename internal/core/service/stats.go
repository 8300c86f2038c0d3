package service

import (
	"context"

	"github.com/Wyydra/geosync/internal/core/domain"
)

type RoomOccupancy struct {
	RoomID  domain.RoomID `json:"roomId"`
	Tracker bool          `json:"tracker"`
	Tracked bool          `json:"tracked"`
	Members int           `json:"members"`
}

type Stats struct {
	Rooms       int             `json:"rooms"`
	Connections int             `json:"connections"`
	Occupancy   []RoomOccupancy `json:"occupancy"`
}

// Stats snapshots the room table. It is answered by the Run goroutine after
// every event queued before it.
func (s *RoomService) Stats(ctx context.Context) (Stats, error) {
	result := make(chan Stats, 1)
	query := func() {
		rooms := s.rooms.List()
		st := Stats{
			Rooms:       len(rooms),
			Connections: len(s.clients),
			Occupancy:   make([]RoomOccupancy, 0, len(rooms)),
		}
		for _, room := range rooms {
			st.Occupancy = append(st.Occupancy, RoomOccupancy{
				RoomID:  room.ID,
				Tracker: room.Tracker != "",
				Tracked: room.Tracked != "",
				Members: s.groups.Members(room.ID),
			})
		}
		result <- st
	}

	select {
	case s.queries <- query:
	case <-s.done():
		return Stats{}, ErrStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}

	select {
	case st := <-result:
		return st, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Room returns a copy of the room as currently stored.
func (s *RoomService) Room(ctx context.Context, id domain.RoomID) (domain.Room, bool, error) {
	type found struct {
		room domain.Room
		ok   bool
	}
	result := make(chan found, 1)
	query := func() {
		room, ok := s.rooms.Get(id)
		result <- found{room, ok}
	}

	select {
	case s.queries <- query:
	case <-s.done():
		return domain.Room{}, false, ErrStopped
	case <-ctx.Done():
		return domain.Room{}, false, ctx.Err()
	}

	select {
	case f := <-result:
		return f.room, f.ok, nil
	case <-ctx.Done():
		return domain.Room{}, false, ctx.Err()
	}
}
