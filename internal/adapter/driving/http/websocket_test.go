package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Wyydra/geosync/internal/adapter/driven/gateway/ws"
	"github.com/Wyydra/geosync/internal/adapter/driven/persistence/memory"
	"github.com/Wyydra/geosync/internal/config"
	"github.com/Wyydra/geosync/internal/core/domain"
	"github.com/Wyydra/geosync/internal/core/service"
	"github.com/Wyydra/geosync/internal/logging"
	"github.com/Wyydra/geosync/internal/metrics"
	"github.com/Wyydra/geosync/internal/wire"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

//nolint:gochecknoinits // keep test output quiet
func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:            5000,
			ShutdownTimeout: time.Second,
			CORSOrigins:     []string{"*"},
		},
		WebSocket: config.WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			MaxMessageSize:  4096,
			SendBuffer:      16,
			UpgradeWindow:   time.Minute,
		},
	}
}

// setupServer starts a relay on an httptest server and returns it with the
// room service behind it.
func setupServer(t *testing.T, cfg *config.Config) (*httptest.Server, *service.RoomService) {
	t.Helper()
	rooms := service.NewRoomService(memory.NewRoomRepository(), ws.NewHub(), service.Options{AnnounceReconnect: true})
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = rooms.Run(ctx) }()

	srv := httptest.NewServer(NewHandler(rooms, cfg).NewRouter())
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv, rooms
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func emit(t *testing.T, conn *websocket.Conn, evt domain.Event) {
	t.Helper()
	b, err := wire.Encode(evt)
	if err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("write %s: %v", evt.Name, err)
	}
}

func expect(t *testing.T, conn *websocket.Conn, want domain.Event) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("waiting for %s: %v", want.Name, err)
	}
	got, err := wire.Decode(raw)
	if err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	if _, raw, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected no event, got %s", raw)
	}
}

func waitForRooms(t *testing.T, rooms *service.RoomService, want int) service.Stats {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st, err := rooms.Stats(context.Background())
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if st.Rooms == want || time.Now().After(deadline) {
			if st.Rooms != want {
				t.Fatalf("Rooms = %d, want %d", st.Rooms, want)
			}
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRelay_EndToEnd(t *testing.T) {
	srv, rooms := setupServer(t, testConfig())
	a := dial(t, srv)
	b := dial(t, srv)

	emit(t, a, domain.NewEvent(domain.EventJoinRoom, domain.JoinRequest{RoomID: "r1", Role: domain.RoleTracker}))
	expect(t, a, domain.NewEvent(domain.EventJoinedSuccessfully, domain.Joined{RoomID: "r1", Role: domain.RoleTracker}))

	emit(t, b, domain.NewEvent(domain.EventJoinRoom, domain.JoinRequest{RoomID: "r1", Role: domain.RoleTracked}))
	expect(t, b, domain.NewEvent(domain.EventJoinedSuccessfully, domain.Joined{RoomID: "r1", Role: domain.RoleTracked}))
	active := domain.NewEvent(domain.EventTrackerStatus, domain.TrackerStatus{Active: true})
	expect(t, b, active)
	expect(t, a, active)

	emit(t, a, domain.NewEvent(domain.EventMapMove, domain.MapMove{RoomID: "r1", Lat: 10, Lng: 20, Zoom: 5}))
	expect(t, b, domain.NewEvent(domain.EventMapUpdate, domain.MapView{Lat: 10, Lng: 20, Zoom: 5}))

	// B is not the tracker: its moves go nowhere.
	emit(t, b, domain.NewEvent(domain.EventMapMove, domain.MapMove{RoomID: "r1", Lat: 1, Lng: 1, Zoom: 1}))
	expectSilence(t, a)

	_ = a.Close()
	expect(t, b, domain.NewEvent(domain.EventTrackerStatus, domain.TrackerStatus{Active: false}))
	st := waitForRooms(t, rooms, 1)
	if st.Occupancy[0].Tracker || !st.Occupancy[0].Tracked {
		t.Errorf("occupancy after tracker disconnect = %+v", st.Occupancy[0])
	}

	emit(t, b, domain.NewEvent(domain.EventLeaveRoom, domain.LeaveRequest{RoomID: "r1", Role: domain.RoleTracked}))
	waitForRooms(t, rooms, 0)
}

func TestRelay_RoleConflictAndBadFrames(t *testing.T) {
	srv, rooms := setupServer(t, testConfig())
	a := dial(t, srv)
	c := dial(t, srv)

	emit(t, a, domain.NewEvent(domain.EventJoinRoom, domain.JoinRequest{RoomID: "r1", Role: domain.RoleTracker}))
	expect(t, a, domain.NewEvent(domain.EventJoinedSuccessfully, domain.Joined{RoomID: "r1", Role: domain.RoleTracker}))

	// Garbage and unknown events are dropped without closing the connection.
	if err := c.WriteMessage(websocket.TextMessage, []byte("{nope")); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteMessage(websocket.TextMessage, []byte(`{"event":"teleport"}`)); err != nil {
		t.Fatal(err)
	}

	emit(t, c, domain.NewEvent(domain.EventJoinRoom, domain.JoinRequest{RoomID: "r1", Role: domain.RoleTracker}))
	expect(t, c, domain.NewEvent(domain.EventErrorMessage, "Tracker already exists in this room."))

	st := waitForRooms(t, rooms, 1)
	if st.Occupancy[0].Members != 1 {
		t.Errorf("members = %d, rejected client must not join the group", st.Occupancy[0].Members)
	}
}

func TestRouter_HTTPEndpoints(t *testing.T) {
	srv, _ := setupServer(t, testConfig())

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != HealthMessage {
		t.Errorf("GET / = %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatal(err)
	}
	var st service.Stats
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	resp.Body.Close()
	if st.Rooms != 0 || st.Connections != 0 {
		t.Errorf("stats on idle server = %+v", st)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "geosync_rooms_active") {
		t.Error("metrics endpoint missing relay gauges")
	}
}

func TestServeWS_UpgradeRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.WebSocket.UpgradeRate = 1
	srv, _ := setupServer(t, cfg)

	dial(t, srv)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("second upgrade within the window should be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %v", resp)
	}
	if resp != nil {
		resp.Body.Close()
	}
}

func TestCheckOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.Server.CORSOrigins = []string{"https://maps.example.com"}
	h := NewHandler(nil, cfg)

	tests := map[string]bool{
		"":                         true,
		"https://maps.example.com": true,
		"https://evil.example.com": false,
	}
	for origin, want := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		if got := h.checkOrigin(r); got != want {
			t.Errorf("checkOrigin(%q) = %v, want %v", origin, got, want)
		}
	}
}

func TestReadPump_UnknownEventNamesShareOneSeries(t *testing.T) {
	srv, _ := setupServer(t, testConfig())
	conn := dial(t, srv)

	before := testutil.CollectAndCount(metrics.EventsDropped)
	for i := 0; i < 300; i++ {
		frame := fmt.Sprintf(`{"event":"junk-%d"}`, i)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatal(err)
		}
	}

	// Frames are read in order, so the reply means every junk frame was seen.
	emit(t, conn, domain.NewEvent(domain.EventJoinRoom, domain.JoinRequest{RoomID: "r1", Role: domain.RoleTracker}))
	expect(t, conn, domain.NewEvent(domain.EventJoinedSuccessfully, domain.Joined{RoomID: "r1", Role: domain.RoleTracker}))

	if grown := testutil.CollectAndCount(metrics.EventsDropped) - before; grown > 1 {
		t.Errorf("unknown event names added %d series, want at most 1", grown)
	}
	if got := testutil.ToFloat64(metrics.EventsDropped.WithLabelValues(metrics.UnknownEvent, metrics.ReasonUnknown)); got < 300 {
		t.Errorf("unknown events counted %v, want >= 300", got)
	}
}
