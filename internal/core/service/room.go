package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Wyydra/geosync/internal/core/domain"
	"github.com/Wyydra/geosync/internal/core/port"
	"github.com/Wyydra/geosync/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrStopped is returned by queries issued while the service loop is not running.
var ErrStopped = errors.New("room service stopped")

// Options tunes protocol details that clients may depend on.
type Options struct {
	// AnnounceReconnect sends trackerReconnected to the room when a tracker
	// joins a room that already has a tracked member. trackerStatus is sent
	// either way and is the signal clients should rely on.
	AnnounceReconnect bool
}

type inbound struct {
	client port.Client
	event  domain.Event
}

// RoomService owns the role table and the broadcast groups. Every operation
// runs on the Run goroutine, one at a time, so neither needs a lock.
type RoomService struct {
	rooms   port.RoomRepository
	groups  port.Gateway
	opts    Options
	clients map[domain.ConnID]port.Client

	register   chan port.Client
	unregister chan port.Client
	inbound    chan inbound
	queries    chan func()

	mu      sync.Mutex
	stopped chan struct{}
}

func NewRoomService(rooms port.RoomRepository, groups port.Gateway, opts Options) *RoomService {
	return &RoomService{
		rooms:      rooms,
		groups:     groups,
		opts:       opts,
		clients:    make(map[domain.ConnID]port.Client),
		register:   make(chan port.Client),
		unregister: make(chan port.Client),
		inbound:    make(chan inbound),
		queries:    make(chan func()),
		stopped:    make(chan struct{}),
	}
}

// Register announces a new connection.
func (s *RoomService) Register(c port.Client) {
	select {
	case s.register <- c:
	case <-s.done():
	}
}

// Disconnect releases every role c holds and forgets it.
func (s *RoomService) Disconnect(c port.Client) {
	select {
	case s.unregister <- c:
	case <-s.done():
	}
}

// Handle queues an inbound event from c.
func (s *RoomService) Handle(c port.Client, evt domain.Event) {
	select {
	case s.inbound <- inbound{client: c, event: evt}:
	case <-s.done():
	}
}

func (s *RoomService) done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Run processes events until ctx is canceled. On return every registered
// client is closed and all rooms are dropped, so Run may be started again.
func (s *RoomService) Run(ctx context.Context) error {
	s.mu.Lock()
	select {
	case <-s.stopped:
		s.stopped = make(chan struct{})
	default:
	}
	stopped := s.stopped
	s.mu.Unlock()

	defer func() {
		s.shutdown()
		close(stopped)
	}()

	log.Info().Msg("Room service started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("clients", len(s.clients)).Int("rooms", s.rooms.Count()).Msg("Stopping room service. Disconnecting all clients.")
			return ctx.Err()

		case client := <-s.register:
			s.clients[client.ID()] = client
			metrics.ConnectionsActive.Set(float64(len(s.clients)))
			log.Debug().Int("count", len(s.clients)).Str("client_id", client.ID().String()).Msg("Client registered")

		case client := <-s.unregister:
			s.disconnect(client)

		case in := <-s.inbound:
			s.handle(in.client, in.event)

		case query := <-s.queries:
			query()
		}
	}
}

func (s *RoomService) shutdown() {
	for id, client := range s.clients {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Str("client_id", id.String()).Msg("Error closing client connection")
		}
		s.groups.LeaveAll(id)
		delete(s.clients, id)
	}
	for _, room := range s.rooms.List() {
		s.rooms.Delete(room.ID)
	}
	metrics.ConnectionsActive.Set(0)
	metrics.RoomsActive.Set(0)
}

func (s *RoomService) handle(c port.Client, evt domain.Event) {
	metrics.EventsReceived.WithLabelValues(evt.Name.String()).Inc()

	switch data := evt.Data.(type) {
	case domain.JoinRequest:
		s.joinRoom(c, data)
	case domain.MapMove:
		s.mapMove(c, data)
	case domain.DragMove:
		s.trackerDragging(c, data)
	case domain.LeaveRequest:
		s.leaveRoom(c, data)
	default:
		log.Warn().Str("client_id", c.ID().String()).Str("event", evt.Name.String()).Msg("Unhandled event")
		metrics.EventsDropped.WithLabelValues(evt.Name.String(), metrics.ReasonUnknown).Inc()
	}
}

func (s *RoomService) joinRoom(c port.Client, req domain.JoinRequest) {
	l := roomLogger(c, req.RoomID).With().Str("role", req.Role.String()).Logger()

	role, err := validateJoin(req)
	if err != nil {
		l.Debug().Err(err).Msg("Join rejected")
		msg := "Invalid role."
		if errors.Is(err, domain.ErrInvalidRoom) {
			msg = "Room ID is required."
		}
		s.rejectJoin(c, req.Role, msg)
		return
	}

	room, ok := s.rooms.Get(req.RoomID)
	if !ok {
		room = domain.NewRoom(req.RoomID)
	}
	if err := room.Assign(role, c.ID()); err != nil {
		l.Info().Err(err).Msg("Join rejected")
		s.rejectJoin(c, role, domain.ConflictMessage(role))
		return
	}
	s.rooms.Save(room)
	metrics.RoomsActive.Set(float64(s.rooms.Count()))

	if role == domain.RoleTracker && room.Tracked != "" && s.opts.AnnounceReconnect {
		s.groups.Emit(room.ID, c.ID(), domain.NewEvent(domain.EventTrackerReconnected, nil))
	}

	s.groups.Join(room.ID, c)
	s.send(c, domain.NewEvent(domain.EventJoinedSuccessfully, domain.Joined{RoomID: room.ID, Role: role}))
	l.Info().Int("members", s.groups.Members(room.ID)).Msg("Client joined room")

	if room.Full() {
		s.groups.Emit(room.ID, "", domain.NewEvent(domain.EventTrackerStatus, domain.TrackerStatus{Active: true}))
	}
}

// validateJoin checks a join request before any state is touched.
func validateJoin(req domain.JoinRequest) (domain.Role, error) {
	if req.RoomID == "" {
		return "", domain.ErrInvalidRoom
	}
	return domain.ParseRole(req.Role.String())
}

func (s *RoomService) rejectJoin(c port.Client, role domain.Role, msg string) {
	label := role.String()
	if !role.Valid() {
		label = metrics.InvalidRole
	}
	metrics.JoinsRejected.WithLabelValues(label).Inc()
	s.send(c, domain.NewEvent(domain.EventErrorMessage, msg))
}

func (s *RoomService) mapMove(c port.Client, mv domain.MapMove) {
	if s.authorizeTracker(c, mv.RoomID, domain.EventMapMove) != nil {
		return
	}
	s.groups.Emit(mv.RoomID, c.ID(), domain.NewEvent(domain.EventMapUpdate, mv.View()))
}

func (s *RoomService) trackerDragging(c port.Client, d domain.DragMove) {
	if s.authorizeTracker(c, d.RoomID, domain.EventTrackerDragging) != nil {
		return
	}
	s.groups.Emit(d.RoomID, c.ID(), domain.NewEvent(domain.EventTrackerDraggingUpdate, d.Position()))
}

// authorizeTracker returns nil when c is the current tracker of the room.
// Anything else is counted, logged and dropped without a reply.
func (s *RoomService) authorizeTracker(c port.Client, roomID domain.RoomID, name domain.EventName) error {
	var (
		err    error
		reason string
	)
	room, ok := s.rooms.Get(roomID)
	switch {
	case !ok:
		err, reason = domain.ErrRoomNotFound, metrics.ReasonNoRoom
	case !room.IsTracker(c.ID()):
		err, reason = domain.ErrNotTracker, metrics.ReasonNotTracker
	default:
		return nil
	}

	l := roomLogger(c, roomID)
	l.Debug().Str("event", name.String()).Err(err).Msg("Dropped update")
	metrics.EventsDropped.WithLabelValues(name.String(), reason).Inc()
	return fmt.Errorf("%s in %s: %w", name, roomID, err)
}

func (s *RoomService) leaveRoom(c port.Client, req domain.LeaveRequest) {
	l := roomLogger(c, req.RoomID).With().Str("role", req.Role.String()).Logger()

	room, ok := s.rooms.Get(req.RoomID)
	if !ok {
		l.Debug().Err(domain.ErrRoomNotFound).Msg("Leave ignored")
		metrics.EventsDropped.WithLabelValues(domain.EventLeaveRoom.String(), metrics.ReasonNoRoom).Inc()
		return
	}
	if !room.Release(req.Role, c.ID()) {
		l.Debug().Msg("Leave ignored, role not held by sender")
		metrics.EventsDropped.WithLabelValues(domain.EventLeaveRoom.String(), metrics.ReasonNotHolder).Inc()
		return
	}

	// The leaving tracker is still in the group and sees the status too.
	if req.Role == domain.RoleTracker {
		s.groups.Emit(room.ID, "", domain.NewEvent(domain.EventTrackerStatus, domain.TrackerStatus{Active: false}))
	}
	if len(room.RolesOf(c.ID())) == 0 {
		s.groups.Leave(room.ID, c.ID())
	}
	s.storeOrDelete(room)
	l.Info().Msg("Client left room")
}

func (s *RoomService) disconnect(c port.Client) {
	id := c.ID()
	delete(s.clients, id)
	metrics.ConnectionsActive.Set(float64(len(s.clients)))

	// Every role holder is in its room's group, so the groups name every
	// room to release.
	for _, roomID := range s.groups.LeaveAll(id) {
		room, ok := s.rooms.Get(roomID)
		if !ok {
			continue
		}
		for _, role := range room.RolesOf(id) {
			room.Release(role, id)
			if role == domain.RoleTracker {
				l := roomLogger(c, room.ID)
				l.Info().Msg("Tracker left room")
				s.groups.Emit(room.ID, id, domain.NewEvent(domain.EventTrackerStatus, domain.TrackerStatus{Active: false}))
			}
		}
		s.storeOrDelete(room)
	}
	log.Debug().Str("client_id", id.String()).Int("count", len(s.clients)).Msg("Client unregistered")
}

func (s *RoomService) storeOrDelete(room domain.Room) {
	if room.Empty() {
		s.rooms.Delete(room.ID)
		log.Info().Str("room_id", room.ID.String()).Msg("Room deleted")
	} else {
		s.rooms.Save(room)
	}
	metrics.RoomsActive.Set(float64(s.rooms.Count()))
}

func (s *RoomService) send(c port.Client, evt domain.Event) {
	if err := c.Send(evt); err != nil {
		log.Error().Err(err).Str("client_id", c.ID().String()).Str("event", evt.Name.String()).Msg("Error sending event")
		metrics.SendFailures.Inc()
		_ = c.Close()
	}
}

func roomLogger(c port.Client, roomID domain.RoomID) zerolog.Logger {
	return log.With().Str("client_id", c.ID().String()).Str("room_id", roomID.String()).Logger()
}
