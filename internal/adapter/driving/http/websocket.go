package http

import (
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/Wyydra/geosync/internal/core/domain"
	"github.com/Wyydra/geosync/internal/metrics"
	"github.com/Wyydra/geosync/internal/wire"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// WSClient implements port.Client over a gorilla connection. Only the write
// pump writes to conn and only the read pump reads from it.
type WSClient struct {
	id        domain.ConnID
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	log       zerolog.Logger
}

func newWSClient(conn *websocket.Conn, sendBuffer int) *WSClient {
	id := domain.NewConnID()
	return &WSClient{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		log:  log.With().Str("client_id", id.String()).Logger(),
	}
}

func (c *WSClient) ID() domain.ConnID {
	return c.id
}

// Send queues evt without blocking. A client that cannot keep up gets
// ErrSendBufferFull and is closed by the caller.
func (c *WSClient) Send(evt domain.Event) error {
	b, err := wire.Encode(evt)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close asks the write pump to send a close frame and drop the connection.
func (c *WSClient) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *WSClient) readPump(rooms RoomService, maxMessageSize int64) {
	defer func() {
		rooms.Disconnect(c)
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Error().Err(err).Msg("Failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Error().Err(err).Msg("Unexpected close error")
			}
			return
		}

		evt, err := wire.Decode(raw)
		if err != nil {
			name, reason := evt.Name.String(), metrics.ReasonMalformed
			if errors.Is(err, wire.ErrUnknownEvent) {
				name, reason = metrics.UnknownEvent, metrics.ReasonUnknown
			}
			metrics.EventsDropped.WithLabelValues(name, reason).Inc()
			c.log.Warn().Err(err).Msg("Dropped frame")
			continue
		}
		rooms.Handle(c, evt)
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug().Err(err).Msg("Write failed")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  h.ws.ReadBufferSize,
		WriteBufferSize: h.ws.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(h.server.CORSOrigins, "*") {
		return true
	}
	return slices.Contains(h.server.CORSOrigins, origin)
}

// ServeWS upgrades the request and runs the connection until it closes.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	client := newWSClient(conn, h.ws.SendBuffer)
	client.log.Info().Str("remote", r.RemoteAddr).Msg("New client connected")

	h.Rooms.Register(client)
	go client.writePump()
	client.readPump(h.Rooms, h.ws.MaxMessageSize)

	client.log.Info().Msg("Client disconnected")
}
