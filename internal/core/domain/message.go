package domain

// EventName is the name carried by every frame on the wire.
type EventName string

// Client to server.
const (
	EventJoinRoom        EventName = "joinRoom"
	EventMapMove         EventName = "mapMove"
	EventTrackerDragging EventName = "trackerDragging"
	EventLeaveRoom       EventName = "leaveRoom"
)

// Server to client.
const (
	EventJoinedSuccessfully    EventName = "joinedSuccessfully"
	EventErrorMessage          EventName = "errorMessage"
	EventTrackerReconnected    EventName = "trackerReconnected"
	EventTrackerStatus         EventName = "trackerStatus"
	EventMapUpdate             EventName = "mapUpdate"
	EventTrackerDraggingUpdate EventName = "trackerDraggingUpdate"
)

func (n EventName) String() string {
	return string(n)
}

// Event is a named frame with a typed payload. Data holds one of the payload
// types below, a string for errorMessage, or nil.
type Event struct {
	Name EventName
	Data any
}

func NewEvent(name EventName, data any) Event {
	return Event{Name: name, Data: data}
}

// JoinRequest is checked by the room service itself so that every bad join
// gets an errorMessage reply.
type JoinRequest struct {
	RoomID RoomID `json:"roomId"`
	Role   Role   `json:"role"`
}

type LeaveRequest struct {
	RoomID RoomID `json:"roomId" validate:"required"`
	Role   Role   `json:"role" validate:"oneof=tracker tracked"`
}

type Joined struct {
	RoomID RoomID `json:"roomId"`
	Role   Role   `json:"role"`
}

type TrackerStatus struct {
	Active bool `json:"active"`
}

// MapMove is the tracker's full viewport. Coordinates are relayed as-is.
type MapMove struct {
	RoomID RoomID  `json:"roomId" validate:"required"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Zoom   float64 `json:"zoom"`
}

type MapView struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zoom float64 `json:"zoom"`
}

type DragMove struct {
	RoomID RoomID  `json:"roomId" validate:"required"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (m MapMove) View() MapView {
	return MapView{Lat: m.Lat, Lng: m.Lng, Zoom: m.Zoom}
}

func (d DragMove) Position() LatLng {
	return LatLng{Lat: d.Lat, Lng: d.Lng}
}
