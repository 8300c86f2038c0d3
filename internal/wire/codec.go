// Package wire encodes domain events as the JSON frames exchanged over the
// websocket: {"event": "<name>", "data": <payload>}.
package wire

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Wyydra/geosync/internal/core/domain"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var (
	ErrMalformed      = errors.New("malformed frame")
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid payload")
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

type frame struct {
	Event domain.EventName `json:"event"`
	Data  json.RawMessage  `json:"data,omitempty"`
}

type outFrame struct {
	Event domain.EventName `json:"event"`
	Data  any              `json:"data,omitempty"`
}

func Encode(evt domain.Event) ([]byte, error) {
	b, err := json.Marshal(outFrame{Event: evt.Name, Data: evt.Data})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", evt.Name, err)
	}
	return b, nil
}

// Decode parses a frame into an event whose Data has the payload type of
// its name. The event name is returned even when the payload is rejected.
func Decode(raw []byte) (domain.Event, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if f.Event == "" {
		return domain.Event{}, fmt.Errorf("%w: missing event name", ErrMalformed)
	}

	evt := domain.Event{Name: f.Event}
	var err error
	switch f.Event {
	case domain.EventJoinRoom:
		evt.Data, err = decodeStruct[domain.JoinRequest](f.Data)
	case domain.EventMapMove:
		evt.Data, err = decodeStruct[domain.MapMove](f.Data)
	case domain.EventTrackerDragging:
		evt.Data, err = decodeStruct[domain.DragMove](f.Data)
	case domain.EventLeaveRoom:
		evt.Data, err = decodeStruct[domain.LeaveRequest](f.Data)
	case domain.EventJoinedSuccessfully:
		evt.Data, err = decodeStruct[domain.Joined](f.Data)
	case domain.EventTrackerStatus:
		evt.Data, err = decodeStruct[domain.TrackerStatus](f.Data)
	case domain.EventMapUpdate:
		evt.Data, err = decodeStruct[domain.MapView](f.Data)
	case domain.EventTrackerDraggingUpdate:
		evt.Data, err = decodeStruct[domain.LatLng](f.Data)
	case domain.EventErrorMessage:
		var msg string
		if len(f.Data) > 0 {
			err = json.Unmarshal(f.Data, &msg)
		}
		evt.Data = msg
	case domain.EventTrackerReconnected:
	default:
		return evt, fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}
	if err != nil {
		return evt, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, f.Event, err)
	}
	return evt, nil
}

func decodeStruct[T any](data json.RawMessage) (T, error) {
	var v T
	if len(data) > 0 {
		if err := json.Unmarshal(data, &v); err != nil {
			return v, err
		}
	}
	if err := getValidator().Struct(v); err != nil {
		return v, err
	}
	return v, nil
}
