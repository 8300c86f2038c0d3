package client

import (
	"sync"

	"github.com/Wyydra/geosync/internal/core/domain"
)

// DefaultZoom is the zoom of a freshly opened map.
const DefaultZoom = 13

// Snapshot is a copy of the view state.
type Snapshot struct {
	// Origin is the device's own starting position. It never moves with
	// the map.
	Origin domain.LatLng

	RoomID        domain.RoomID
	Role          domain.Role
	Joined        bool
	Center        domain.MapView
	TrackerActive bool
	LastConfirmed *domain.LatLng
	LiveDrag      *domain.LatLng
}

// Interactive reports whether local panning and zooming is allowed. A
// tracked client is locked while its tracker is connected.
func (s Snapshot) Interactive() bool {
	return !(s.Joined && s.Role == domain.RoleTracked && s.TrackerActive)
}

// View is the local map state kept in sync with server events.
type View struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewView(origin domain.LatLng) *View {
	return &View{snap: Snapshot{
		Origin: origin,
		Center: domain.MapView{Lat: origin.Lat, Lng: origin.Lng, Zoom: DefaultZoom},
	}}
}

func (v *View) Snapshot() Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()

	s := v.snap
	s.LastConfirmed = copyLatLng(s.LastConfirmed)
	s.LiveDrag = copyLatLng(s.LiveDrag)
	return s
}

// Apply updates the state from a server event and reports whether it
// changed anything.
func (v *View) Apply(evt domain.Event) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch data := evt.Data.(type) {
	case domain.Joined:
		v.snap.Joined = true
		v.snap.RoomID = data.RoomID
		v.snap.Role = data.Role
		return true

	case domain.TrackerStatus:
		if v.snap.TrackerActive == data.Active {
			return false
		}
		v.snap.TrackerActive = data.Active
		return true

	case domain.MapView:
		if v.snap.Role != domain.RoleTracked {
			return false
		}
		v.snap.Center = data
		v.snap.LastConfirmed = &domain.LatLng{Lat: data.Lat, Lng: data.Lng}
		return true

	case domain.LatLng:
		if v.snap.Role != domain.RoleTracked {
			return false
		}
		v.snap.LiveDrag = &domain.LatLng{Lat: data.Lat, Lng: data.Lng}
		return true
	}
	return false
}

// MoveTo sets the center from a local pan or zoom.
func (v *View) MoveTo(view domain.MapView) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.snap.Center = view
}

// Reset clears room membership and remote markers. The center and the
// origin stay where they are.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.snap = Snapshot{Origin: v.snap.Origin, Center: v.snap.Center}
}

func copyLatLng(p *domain.LatLng) *domain.LatLng {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
