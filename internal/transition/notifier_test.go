package transition

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nholik/geofence-sentinel/internal/geofence"
	"github.com/nholik/geofence-sentinel/internal/notify"
	"github.com/nholik/geofence-sentinel/internal/zone"
	"github.com/rs/zerolog"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, alert notify.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return r.err
}

func testRegistry(t *testing.T) *zone.Registry {
	t.Helper()
	z, err := zone.NewZone("Z1", "Chaprashir hat", zone.Coordinate{Latitude: 22.7956, Longitude: 91.1989}, 500)
	if err != nil {
		t.Fatalf("NewZone: %v", err)
	}
	registry, err := zone.NewRegistry([]zone.Zone{z})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return registry
}

func TestOnTransition_EnterThenExit(t *testing.T) {
	sink := &recordingNotifier{}
	n := NewNotifier(zerolog.Nop(), testRegistry(t), sink, WithIDGenerator(func() string { return "fixed" }))

	at := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)
	n.OnTransition(context.Background(), geofence.TransitionEvent{ZoneID: "Z1", Kind: geofence.Enter, At: at})
	n.OnTransition(context.Background(), geofence.TransitionEvent{ZoneID: "Z1", Kind: geofence.Exit, At: at.Add(time.Minute)})

	if len(sink.alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(sink.alerts))
	}

	enter := sink.alerts[0]
	if !strings.Contains(enter.Body, "Chaprashir hat") || !strings.Contains(enter.Body, "entered") {
		t.Fatalf("unexpected enter body: %q", enter.Body)
	}
	if enter.Title != "Entered Region" || enter.ID != "fixed" || !enter.At.Equal(at) {
		t.Fatalf("unexpected enter alert: %+v", enter)
	}

	exit := sink.alerts[1]
	if !strings.Contains(exit.Body, "Chaprashir hat") || !strings.Contains(exit.Body, "exited") {
		t.Fatalf("unexpected exit body: %q", exit.Body)
	}
	if exit.Title != "Exited Region" || exit.Kind != string(geofence.Exit) {
		t.Fatalf("unexpected exit alert: %+v", exit)
	}
}

func TestOnTransition_UnknownZoneWarnsOnce(t *testing.T) {
	sink := &recordingNotifier{}
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	n := NewNotifier(logger, testRegistry(t), sink)

	n.OnTransition(context.Background(), geofence.TransitionEvent{ZoneID: "Z404", Kind: geofence.Enter})

	if len(sink.alerts) != 0 {
		t.Fatalf("expected no alerts, got %d", len(sink.alerts))
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	warnings := 0
	for _, line := range lines {
		if strings.Contains(line, `"level":"warn"`) {
			warnings++
		}
	}
	if warnings != 1 {
		t.Fatalf("expected exactly one warning, got %d: %s", warnings, buf.String())
	}
	if !strings.Contains(buf.String(), "Z404") {
		t.Fatalf("expected zone id in warning, got %s", buf.String())
	}
}

func TestOnTransition_DuplicatesEachNotify(t *testing.T) {
	sink := &recordingNotifier{}
	n := NewNotifier(zerolog.Nop(), testRegistry(t), sink)

	event := geofence.TransitionEvent{ZoneID: "Z1", Kind: geofence.Enter}
	n.OnTransition(context.Background(), event)
	n.OnTransition(context.Background(), event)

	if len(sink.alerts) != 2 {
		t.Fatalf("expected one alert per delivery, got %d", len(sink.alerts))
	}
	if sink.alerts[0].ID == sink.alerts[1].ID {
		t.Fatalf("expected distinct alert ids")
	}
}

func TestOnTransition_SinkErrorIsSwallowed(t *testing.T) {
	sink := &recordingNotifier{err: errors.New("slack down")}
	n := NewNotifier(zerolog.Nop(), testRegistry(t), sink)

	n.OnTransition(context.Background(), geofence.TransitionEvent{ZoneID: "Z1", Kind: geofence.Enter})
	n.OnTransition(context.Background(), geofence.TransitionEvent{ZoneID: "Z1", Kind: geofence.Exit})

	if len(sink.alerts) != 2 {
		t.Fatalf("expected delivery attempts to continue, got %d", len(sink.alerts))
	}
}

func TestBuildAlert_UnsupportedKind(t *testing.T) {
	z, _ := testRegistry(t).Lookup("Z1")
	if _, ok := BuildAlert(z, geofence.TransitionEvent{ZoneID: "Z1", Kind: "DWELL"}); ok {
		t.Fatalf("expected unsupported kind to be rejected")
	}
}
