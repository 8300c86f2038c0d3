package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Wyydra/geosync/internal/core/domain"
)

var errBadInput = errors.New(`expected "lat lng [zoom]", "drag lat lng" or "leave"`)

type inputKind int

const (
	inputMove inputKind = iota
	inputDrag
	inputLeave
	inputSkip
)

type input struct {
	kind    inputKind
	pos     domain.LatLng
	zoom    float64
	hasZoom bool
}

// parseInput reads one line of tracker input.
func parseInput(line string) (input, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return input{kind: inputSkip}, nil
	}

	switch fields[0] {
	case "leave", "quit", "exit":
		return input{kind: inputLeave}, nil
	case "drag":
		if len(fields) != 3 {
			return input{}, errBadInput
		}
		pos, err := parsePair(fields[1], fields[2])
		if err != nil {
			return input{}, err
		}
		return input{kind: inputDrag, pos: pos}, nil
	}

	if len(fields) < 2 || len(fields) > 3 {
		return input{}, errBadInput
	}
	pos, err := parsePair(fields[0], fields[1])
	if err != nil {
		return input{}, err
	}
	in := input{kind: inputMove, pos: pos}
	if len(fields) == 3 {
		z, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return input{}, fmt.Errorf("zoom %q: %w", fields[2], errBadInput)
		}
		in.zoom, in.hasZoom = z, true
	}
	return in, nil
}

func parsePair(latStr, lngStr string) (domain.LatLng, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return domain.LatLng{}, fmt.Errorf("latitude %q: %w", latStr, errBadInput)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return domain.LatLng{}, fmt.Errorf("longitude %q: %w", lngStr, errBadInput)
	}
	return domain.LatLng{Lat: lat, Lng: lng}, nil
}
