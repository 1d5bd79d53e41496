package zone

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidZoneConfig reports static zone data that cannot be registered.
var ErrInvalidZoneConfig = errors.New("invalid zone config")

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Validate reports whether the coordinate lies within latitude/longitude bounds.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Longitude)
	}
	return nil
}

// String formats the coordinate as "lat,lng".
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// Zone is a named circular region used as a geofence trigger.
type Zone struct {
	ID           string     `json:"id"`
	Label        string     `json:"label"`
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radius_m"`
}

// NewZone validates and constructs a Zone.
func NewZone(id, label string, center Coordinate, radiusMeters float64) (Zone, error) {
	z := Zone{
		ID:           strings.TrimSpace(id),
		Label:        label,
		Center:       center,
		RadiusMeters: radiusMeters,
	}
	if err := z.Validate(); err != nil {
		return Zone{}, err
	}
	return z, nil
}

// Validate checks the zone invariants.
func (z Zone) Validate() error {
	if z.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidZoneConfig)
	}
	if math.IsNaN(z.RadiusMeters) || math.IsInf(z.RadiusMeters, 0) || z.RadiusMeters <= 0 {
		return fmt.Errorf("%w: zone %q: radius must be a positive finite number, got %v", ErrInvalidZoneConfig, z.ID, z.RadiusMeters)
	}
	if err := z.Center.Validate(); err != nil {
		return fmt.Errorf("%w: zone %q: %v", ErrInvalidZoneConfig, z.ID, err)
	}
	return nil
}

// DisplayName returns the label, falling back to the id.
func (z Zone) DisplayName() string {
	if strings.TrimSpace(z.Label) == "" {
		return z.ID
	}
	return z.Label
}

// Contains reports whether c lies inside the zone boundary.
func (z Zone) Contains(c Coordinate) bool {
	return Distance(z.Center, c) <= z.RadiusMeters
}
