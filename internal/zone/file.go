package zone

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed zones.yaml
var defaultZones []byte

// File is the YAML shape of static zone data:
// default_radius_m: 500
// zones: [{id, label, latitude, longitude, radius_m}]
type File struct {
	DefaultRadiusMeters float64     `yaml:"default_radius_m"`
	Zones               []FileEntry `yaml:"zones"`
}

// FileEntry is a single zone in a zone file.
type FileEntry struct {
	ID           string   `yaml:"id"`
	Label        string   `yaml:"label"`
	Latitude     float64  `yaml:"latitude"`
	Longitude    float64  `yaml:"longitude"`
	RadiusMeters *float64 `yaml:"radius_m,omitempty"`
}

// Default returns the registry compiled into the binary.
func Default() (*Registry, error) {
	return Parse(defaultZones)
}

// LoadFile builds a registry from a zone file. An empty path yields the default registry.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zone file: %w", err)
	}
	return Parse(data)
}

// Parse decodes zone YAML and validates every entry.
func Parse(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse zone file: %v", ErrInvalidZoneConfig, err)
	}

	zones := make([]Zone, 0, len(f.Zones))
	for i, entry := range f.Zones {
		radius := f.DefaultRadiusMeters
		if entry.RadiusMeters != nil {
			radius = *entry.RadiusMeters
		}
		z, err := NewZone(entry.ID, entry.Label, Coordinate{Latitude: entry.Latitude, Longitude: entry.Longitude}, radius)
		if err != nil {
			return nil, fmt.Errorf("zone %d: %w", i, err)
		}
		zones = append(zones, z)
	}
	return NewRegistry(zones)
}
