package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Wyydra/geosync/internal/core/domain"
	"github.com/rs/zerolog/log"
)

var (
	ErrRoomRequired = errors.New("Please enter Room ID")
	ErrNotJoined    = errors.New("not in a room")
	ErrNotTracker   = errors.New("only the tracker can move the map")
)

// ServerError is an errorMessage reply from the relay.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

type SessionOptions struct {
	// MoveInterval throttles mapMove. Zero means DefaultMoveInterval.
	MoveInterval time.Duration
	// OnChange is called on the read goroutine after every view change.
	OnChange func(Snapshot)
}

// Session is one participant: a connection, its view and the room it joined.
type Session struct {
	conn     *Conn
	view     *View
	moves    *throttle[domain.MapView]
	onChange func(Snapshot)

	mu     sync.Mutex
	roomID domain.RoomID
	role   domain.Role
	subs   []func()
}

func NewSession(conn *Conn, origin domain.LatLng, opts SessionOptions) *Session {
	s := &Session{
		conn:     conn,
		view:     NewView(origin),
		onChange: opts.OnChange,
	}
	s.moves = newThrottle(opts.MoveInterval, s.sendMove)

	s.subs = []func(){
		conn.On(domain.EventTrackerStatus, s.apply),
		conn.On(domain.EventMapUpdate, s.apply),
		conn.On(domain.EventTrackerDraggingUpdate, s.apply),
		conn.On(domain.EventTrackerReconnected, func(domain.Event) {
			log.Debug().Msg("Tracker reconnected")
		}),
	}
	return s
}

func (s *Session) View() Snapshot {
	return s.view.Snapshot()
}

// Done is closed when the connection to the relay is gone.
func (s *Session) Done() <-chan struct{} {
	return s.conn.Done()
}

// Join asks the relay for role in roomID and waits for the verdict.
func (s *Session) Join(ctx context.Context, roomID domain.RoomID, role domain.Role) error {
	if roomID == "" {
		return ErrRoomRequired
	}

	result := make(chan error, 1)
	offOK := s.conn.On(domain.EventJoinedSuccessfully, func(evt domain.Event) {
		s.apply(evt)
		select {
		case result <- nil:
		default:
		}
	})
	defer offOK()
	offErr := s.conn.On(domain.EventErrorMessage, func(evt domain.Event) {
		msg, _ := evt.Data.(string)
		select {
		case result <- &ServerError{Message: msg}:
		default:
		}
	})
	defer offErr()

	if err := s.conn.Emit(domain.NewEvent(domain.EventJoinRoom, domain.JoinRequest{RoomID: roomID, Role: role})); err != nil {
		return fmt.Errorf("join %s: %w", roomID, err)
	}

	select {
	case err := <-result:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	case <-s.conn.Done():
		return fmt.Errorf("join %s: %w", roomID, ErrClosed)
	}

	s.mu.Lock()
	s.roomID = roomID
	s.role = role
	s.mu.Unlock()
	s.moves.Reset()

	log.Info().Str("room_id", roomID.String()).Str("role", role.String()).Msg("Joined room")
	return nil
}

// Drag forwards the tracker's live position without throttling.
func (s *Session) Drag(pos domain.LatLng) error {
	roomID, err := s.trackerRoom()
	if err != nil {
		return err
	}
	return s.conn.Emit(domain.NewEvent(domain.EventTrackerDragging, domain.DragMove{
		RoomID: roomID,
		Lat:    pos.Lat,
		Lng:    pos.Lng,
	}))
}

// Move sets the local view and forwards it, throttled.
func (s *Session) Move(view domain.MapView) error {
	if _, err := s.trackerRoom(); err != nil {
		return err
	}
	s.view.MoveTo(view)
	s.moves.Push(view)
	return nil
}

// Flush sends a move still held back by the throttle.
func (s *Session) Flush() {
	s.moves.Flush()
}

// Leave gives up the role and resets all room state.
func (s *Session) Leave() error {
	s.mu.Lock()
	roomID, role := s.roomID, s.role
	s.roomID, s.role = "", ""
	s.mu.Unlock()

	s.moves.Stop()
	s.view.Reset()
	s.notify()

	if roomID == "" {
		return ErrNotJoined
	}
	return s.conn.Emit(domain.NewEvent(domain.EventLeaveRoom, domain.LeaveRequest{RoomID: roomID, Role: role}))
}

// Close leaves the room if needed and closes the connection.
func (s *Session) Close() error {
	if err := s.Leave(); err != nil && !errors.Is(err, ErrNotJoined) && !errors.Is(err, ErrClosed) {
		log.Warn().Err(err).Msg("Failed to leave room")
	}

	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	for _, off := range subs {
		off()
	}
	return s.conn.Close()
}

func (s *Session) trackerRoom() (domain.RoomID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.roomID == "" {
		return "", ErrNotJoined
	}
	if s.role != domain.RoleTracker {
		return "", ErrNotTracker
	}
	return s.roomID, nil
}

func (s *Session) sendMove(view domain.MapView) {
	s.mu.Lock()
	roomID := s.roomID
	s.mu.Unlock()
	if roomID == "" {
		return
	}

	err := s.conn.Emit(domain.NewEvent(domain.EventMapMove, domain.MapMove{
		RoomID: roomID,
		Lat:    view.Lat,
		Lng:    view.Lng,
		Zoom:   view.Zoom,
	}))
	if err != nil {
		log.Debug().Err(err).Msg("Dropping map move")
	}
}

func (s *Session) apply(evt domain.Event) {
	if s.view.Apply(evt) {
		s.notify()
	}
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange(s.view.Snapshot())
	}
}
