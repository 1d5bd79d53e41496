package geofence

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the direction of a zone membership change.
type Kind string

const (
	Enter Kind = "ENTER"
	Exit  Kind = "EXIT"
)

// ParseKind accepts "enter"/"exit" in any case, and the platform numeric
// codes "1" (enter) and "2" (exit).
func ParseKind(value string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "ENTER", "ENTERED", "1":
		return Enter, nil
	case "EXIT", "EXITED", "2":
		return Exit, nil
	default:
		return "", fmt.Errorf("unknown transition kind %q", value)
	}
}

// TransitionEvent reports that the device entered or exited a zone.
type TransitionEvent struct {
	ZoneID string
	Kind   Kind
	At     time.Time
}

// Region is the wire shape of a zone handed to a monitoring service.
type Region struct {
	ID           string  `json:"id"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_m"`
}

// Delivery is an unvalidated payload from a monitoring service. Err is set
// when the service failed to produce an event.
type Delivery struct {
	ZoneID string
	Kind   string
	At     time.Time
	Err    error
}

// Event validates the delivery and converts it to a TransitionEvent.
func (d Delivery) Event() (TransitionEvent, error) {
	if d.Err != nil {
		return TransitionEvent{}, &MalformedEventError{Reason: "delivery failed", Err: d.Err}
	}
	zoneID := strings.TrimSpace(d.ZoneID)
	if zoneID == "" {
		return TransitionEvent{}, &MalformedEventError{Reason: "missing zone id"}
	}
	kind, err := ParseKind(d.Kind)
	if err != nil {
		return TransitionEvent{}, &MalformedEventError{Reason: "invalid kind", Err: err}
	}
	return TransitionEvent{ZoneID: zoneID, Kind: kind, At: d.At}, nil
}
