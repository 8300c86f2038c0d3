// Package client speaks the relay protocol from the tracker or tracked side.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Wyydra/geosync/internal/core/domain"
	"github.com/Wyydra/geosync/internal/wire"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

var ErrClosed = errors.New("connection closed")

// Handler runs on the read goroutine and must not block.
type Handler func(evt domain.Event)

// Conn is a websocket connection to the relay with per-event handlers.
type Conn struct {
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	readDone  chan struct{}
	writeDone chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	handlers map[domain.EventName]map[uint64]Handler
	nextID   uint64
}

func Dial(ctx context.Context, url string) (*Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, resp, err := dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	c := &Conn{
		ws:        ws,
		send:      make(chan []byte, 64),
		done:      make(chan struct{}),
		readDone:  make(chan struct{}),
		writeDone: make(chan struct{}),
		handlers:  make(map[domain.EventName]map[uint64]Handler),
	}
	ws.SetReadLimit(maxMessageSize)
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.readPump()
	go c.writePump()
	return c, nil
}

// On registers h for events named name. The returned func removes it; it is
// safe to call more than once.
func (c *Conn) On(name domain.EventName, h Handler) (off func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	if c.handlers[name] == nil {
		c.handlers[name] = make(map[uint64]Handler)
	}
	c.handlers[name][id] = h

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[name], id)
	}
}

// Emit queues evt for the write pump.
func (c *Conn) Emit(evt domain.Event) error {
	b, err := wire.Encode(evt)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- b:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// Done is closed once the connection stops reading.
func (c *Conn) Done() <-chan struct{} {
	return c.readDone
}

// Close drops every handler and closes the connection once queued frames
// are written.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.handlers = make(map[domain.EventName]map[uint64]Handler)
		c.mu.Unlock()
		close(c.done)
	})

	select {
	case <-c.writeDone:
	case <-time.After(writeWait):
	}
	return nil
}

func (c *Conn) dispatch(evt domain.Event) {
	c.mu.Lock()
	hs := make([]Handler, 0, len(c.handlers[evt.Name]))
	for _, h := range c.handlers[evt.Name] {
		hs = append(hs, h)
	}
	c.mu.Unlock()

	for _, h := range hs {
		h(evt)
	}
}

func (c *Conn) readPump() {
	defer func() {
		close(c.readDone)
		_ = c.Close()
	}()

	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Msg("Connection to relay lost")
			}
			return
		}
		evt, err := wire.Decode(raw)
		if err != nil {
			log.Debug().Err(err).Msg("Ignoring frame")
			continue
		}
		c.dispatch(evt)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		close(c.writeDone)
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			// Flush what was queued before Close, e.g. a final leaveRoom.
		drain:
			for {
				select {
				case msg := <-c.send:
					_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				default:
					break drain
				}
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
