package zone

import "fmt"

// Registry is an immutable, ordered set of zones. It is safe for concurrent reads.
type Registry struct {
	zones []Zone
	byID  map[string]int
}

// NewRegistry validates zones and returns a registry preserving their order.
func NewRegistry(zones []Zone) (*Registry, error) {
	r := &Registry{
		zones: make([]Zone, 0, len(zones)),
		byID:  make(map[string]int, len(zones)),
	}
	for i, z := range zones {
		if err := z.Validate(); err != nil {
			return nil, fmt.Errorf("zone %d: %w", i, err)
		}
		if _, dup := r.byID[z.ID]; dup {
			return nil, fmt.Errorf("%w: zone %q: duplicate id", ErrInvalidZoneConfig, z.ID)
		}
		r.byID[z.ID] = len(r.zones)
		r.zones = append(r.zones, z)
	}
	return r, nil
}

// Zones returns a copy of the registered zones in registration order.
func (r *Registry) Zones() []Zone {
	if r == nil {
		return nil
	}
	out := make([]Zone, len(r.zones))
	copy(out, r.zones)
	return out
}

// Lookup returns the zone registered under id.
func (r *Registry) Lookup(id string) (Zone, bool) {
	if r == nil {
		return Zone{}, false
	}
	idx, ok := r.byID[id]
	if !ok {
		return Zone{}, false
	}
	return r.zones[idx], true
}

// Len returns the number of registered zones.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.zones)
}
