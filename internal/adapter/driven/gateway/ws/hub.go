package ws

import (
	"github.com/Wyydra/geosync/internal/core/domain"
	"github.com/Wyydra/geosync/internal/core/port"
	"github.com/Wyydra/geosync/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Hub implements port.Gateway. It maps each room to the connections that
// joined its broadcast group. It holds no lock: only the room service loop
// calls into it.
type Hub struct {
	groups map[domain.RoomID]map[domain.ConnID]port.Client
}

func NewHub() *Hub {
	return &Hub{
		groups: make(map[domain.RoomID]map[domain.ConnID]port.Client),
	}
}

func (h *Hub) Join(roomID domain.RoomID, c port.Client) {
	members, ok := h.groups[roomID]
	if !ok {
		members = make(map[domain.ConnID]port.Client)
		h.groups[roomID] = members
	}
	members[c.ID()] = c
}

func (h *Hub) Leave(roomID domain.RoomID, id domain.ConnID) {
	members, ok := h.groups[roomID]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(h.groups, roomID)
	}
}

func (h *Hub) LeaveAll(id domain.ConnID) []domain.RoomID {
	var left []domain.RoomID
	for roomID, members := range h.groups {
		if _, ok := members[id]; !ok {
			continue
		}
		delete(members, id)
		if len(members) == 0 {
			delete(h.groups, roomID)
		}
		left = append(left, roomID)
	}
	return left
}

func (h *Hub) Emit(roomID domain.RoomID, except domain.ConnID, evt domain.Event) int {
	sent := 0
	for id, client := range h.groups[roomID] {
		if id == except {
			continue
		}
		if err := client.Send(evt); err != nil {
			// The closed connection comes back through the disconnect path.
			log.Error().Err(err).Str("client_id", id.String()).Str("event", evt.Name.String()).Msg("Error sending event")
			metrics.SendFailures.Inc()
			_ = client.Close()
			continue
		}
		sent++
	}
	if sent > 0 {
		metrics.EventsRelayed.WithLabelValues(evt.Name.String()).Add(float64(sent))
	}
	return sent
}

func (h *Hub) Members(roomID domain.RoomID) int {
	return len(h.groups[roomID])
}
