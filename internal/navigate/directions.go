// Package navigate builds deep links that hand a destination to an external
// turn-by-turn navigation app.
package navigate

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nholik/geofence-sentinel/internal/zone"
)

const mapsDirectionsURL = "https://www.google.com/maps/dir/"

// TravelMode selects the routing profile in the navigation app.
type TravelMode string

const (
	Driving   TravelMode = "driving"
	Walking   TravelMode = "walking"
	Bicycling TravelMode = "bicycling"
	Transit   TravelMode = "transit"
)

// ParseTravelMode parses a mode name, case-insensitively. Empty means driving.
func ParseTravelMode(value string) (TravelMode, error) {
	mode := TravelMode(strings.ToLower(strings.TrimSpace(value)))
	switch mode {
	case "":
		return Driving, nil
	case Driving, Walking, Bicycling, Transit:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported travel mode %q", value)
	}
}

// DirectionsURL returns a maps deep link routing to destination. A nil origin
// lets the app start from the device's current location.
func DirectionsURL(origin *zone.Coordinate, destination zone.Coordinate, mode TravelMode) (string, error) {
	mode, err := ParseTravelMode(string(mode))
	if err != nil {
		return "", err
	}
	if err := destination.Validate(); err != nil {
		return "", fmt.Errorf("invalid destination: %w", err)
	}

	query := url.Values{}
	query.Set("api", "1")
	query.Set("destination", destination.String())
	query.Set("travelmode", string(mode))
	if origin != nil {
		if err := origin.Validate(); err != nil {
			return "", fmt.Errorf("invalid origin: %w", err)
		}
		query.Set("origin", origin.String())
	}
	return mapsDirectionsURL + "?" + query.Encode(), nil
}

// ParseCoordinate parses "lat,lng".
func ParseCoordinate(value string) (zone.Coordinate, error) {
	lat, lng, ok := strings.Cut(value, ",")
	if !ok {
		return zone.Coordinate{}, fmt.Errorf("invalid coordinate %q: want lat,lng", value)
	}
	var c zone.Coordinate
	var err error
	if c.Latitude, err = strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil {
		return zone.Coordinate{}, fmt.Errorf("invalid coordinate %q: %w", value, err)
	}
	if c.Longitude, err = strconv.ParseFloat(strings.TrimSpace(lng), 64); err != nil {
		return zone.Coordinate{}, fmt.Errorf("invalid coordinate %q: %w", value, err)
	}
	if err := c.Validate(); err != nil {
		return zone.Coordinate{}, err
	}
	return c, nil
}
