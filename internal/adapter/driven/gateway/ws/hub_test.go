package ws

import (
	"errors"
	"io"
	"slices"
	"testing"

	"github.com/Wyydra/geosync/internal/core/domain"
	"github.com/Wyydra/geosync/internal/logging"
)

//nolint:gochecknoinits // keep test output quiet
func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

type recordingClient struct {
	id     domain.ConnID
	events []domain.Event
	fail   bool
	closed bool
}

func (c *recordingClient) ID() domain.ConnID { return c.id }

func (c *recordingClient) Send(evt domain.Event) error {
	if c.fail {
		return errors.New("send buffer full")
	}
	c.events = append(c.events, evt)
	return nil
}

func (c *recordingClient) Close() error {
	c.closed = true
	return nil
}

func TestHub_EmitSkipsSender(t *testing.T) {
	h := NewHub()
	a := &recordingClient{id: "a"}
	b := &recordingClient{id: "b"}
	other := &recordingClient{id: "c"}
	h.Join("r1", a)
	h.Join("r1", b)
	h.Join("r2", other)

	evt := domain.NewEvent(domain.EventMapUpdate, domain.MapView{Lat: 1, Lng: 2, Zoom: 3})
	if n := h.Emit("r1", "a", evt); n != 1 {
		t.Errorf("Emit reached %d members, want 1", n)
	}
	if len(a.events) != 0 {
		t.Errorf("sender received its own event")
	}
	if len(b.events) != 1 || b.events[0] != evt {
		t.Errorf("b events = %v", b.events)
	}
	if len(other.events) != 0 {
		t.Errorf("event leaked into another room")
	}

	if n := h.Emit("r1", "", evt); n != 2 {
		t.Errorf("Emit to whole room reached %d, want 2", n)
	}
}

func TestHub_LeaveDropsEmptyGroups(t *testing.T) {
	h := NewHub()
	a := &recordingClient{id: "a"}
	h.Join("r1", a)
	h.Join("r2", a)

	h.Leave("r1", "a")
	if h.Members("r1") != 0 {
		t.Errorf("r1 members = %d", h.Members("r1"))
	}
	if _, ok := h.groups["r1"]; ok {
		t.Error("empty group r1 should be removed")
	}

	left := h.LeaveAll("a")
	if !slices.Equal(left, []domain.RoomID{"r2"}) {
		t.Errorf("LeaveAll = %v, want [r2]", left)
	}
	if len(h.groups) != 0 {
		t.Errorf("groups not empty: %v", h.groups)
	}

	// Leaving an unknown group is a no-op.
	h.Leave("missing", "a")
}

func TestHub_EmitClosesFailingClient(t *testing.T) {
	h := NewHub()
	bad := &recordingClient{id: "bad", fail: true}
	good := &recordingClient{id: "good"}
	h.Join("r1", bad)
	h.Join("r1", good)

	n := h.Emit("r1", "", domain.NewEvent(domain.EventTrackerStatus, domain.TrackerStatus{Active: false}))
	if n != 1 {
		t.Errorf("Emit reached %d, want 1", n)
	}
	if !bad.closed {
		t.Error("failing client should be closed")
	}
	if good.closed {
		t.Error("healthy client must stay open")
	}
}
