package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/Wyydra/geosync/internal/core/domain"
)

const (
	EnvLat = "GEOSYNC_LAT"
	EnvLng = "GEOSYNC_LNG"
)

var ErrLocationUnavailable = errors.New("location unavailable")

// Locator yields the starting position once. There is no retry.
type Locator interface {
	Locate(ctx context.Context) (domain.LatLng, error)
}

// FixedLocator returns a position given on the command line.
type FixedLocator struct {
	Lat, Lng string
}

func (l FixedLocator) Locate(context.Context) (domain.LatLng, error) {
	return parseLatLng(l.Lat, l.Lng)
}

// EnvLocator reads the position from GEOSYNC_LAT and GEOSYNC_LNG.
type EnvLocator struct {
	Getenv func(string) string
}

func (l EnvLocator) Locate(context.Context) (domain.LatLng, error) {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	return parseLatLng(getenv(EnvLat), getenv(EnvLng))
}

func parseLatLng(latStr, lngStr string) (domain.LatLng, error) {
	if latStr == "" || lngStr == "" {
		return domain.LatLng{}, fmt.Errorf("%w: set --lat/--lng or %s/%s", ErrLocationUnavailable, EnvLat, EnvLng)
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return domain.LatLng{}, fmt.Errorf("%w: latitude %q: %v", ErrLocationUnavailable, latStr, err)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return domain.LatLng{}, fmt.Errorf("%w: longitude %q: %v", ErrLocationUnavailable, lngStr, err)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return domain.LatLng{}, fmt.Errorf("%w: %v,%v out of range", ErrLocationUnavailable, lat, lng)
	}
	return domain.LatLng{Lat: lat, Lng: lng}, nil
}
