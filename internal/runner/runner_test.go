package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nholik/geofence-sentinel/internal/geofence"
	"github.com/nholik/geofence-sentinel/internal/notify"
	"github.com/nholik/geofence-sentinel/internal/permission"
	"github.com/nholik/geofence-sentinel/internal/zone"
	"github.com/rs/zerolog"
)

type fakeGate struct {
	result permission.AccessResult
	err    error
}

func (g fakeGate) RequestAccess(context.Context) (permission.AccessResult, error) {
	return g.result, g.err
}

type fakeMonitor struct {
	mu        sync.Mutex
	armErr    error
	armCalls  int
	disarms   int
	lastZones []zone.Zone
	armedWith permission.AccessResult
}

func (m *fakeMonitor) Arm(_ context.Context, access permission.AccessResult, zones []zone.Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armCalls++
	m.armedWith = access
	m.lastZones = zones
	return m.armErr
}

func (m *fakeMonitor) Disarm(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disarms++
	return nil
}

func (m *fakeMonitor) counts() (arms, disarms int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.armCalls, m.disarms
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
}

func (n *recordingNotifier) Notify(_ context.Context, alert notify.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return nil
}

func (n *recordingNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.alerts))
	for _, a := range n.alerts {
		out = append(out, a.Title)
	}
	return out
}

func testZones() []zone.Zone {
	return []zone.Zone{
		{ID: "Z1", Label: "Chaprashir hat", Center: zone.Coordinate{Latitude: 22.7956, Longitude: 91.1989}, RadiusMeters: 500},
		{ID: "Z2", Label: "bashurhat", Center: zone.Coordinate{Latitude: 22.7880, Longitude: 91.2266}, RadiusMeters: 500},
	}
}

func TestRunner_Start_Outcomes(t *testing.T) {
	cases := []struct {
		name           string
		gate           fakeGate
		armErr         error
		foregroundOnly bool
		wantOutcome    Outcome
		wantArms       int
		wantTitles     []string
		wantErr        bool
	}{
		{
			name:           "granted arms all zones",
			gate:           fakeGate{result: permission.Granted},
			foregroundOnly: true,
			wantOutcome:    OutcomeArmed,
			wantArms:       1,
		},
		{
			name:           "foreground denied never arms",
			gate:           fakeGate{result: permission.ForegroundDenied},
			foregroundOnly: true,
			wantOutcome:    OutcomeForegroundDenied,
			wantTitles:     []string{titleForegroundDenied},
		},
		{
			name:           "foreground prompt failure never arms",
			gate:           fakeGate{result: permission.ForegroundDenied, err: errors.New("prompt crashed")},
			foregroundOnly: true,
			wantOutcome:    OutcomeForegroundDenied,
			wantTitles:     []string{titleForegroundDenied},
			wantErr:        true,
		},
		{
			name:           "background denied arms with warning",
			gate:           fakeGate{result: permission.BackgroundDenied},
			foregroundOnly: true,
			wantOutcome:    OutcomeArmed,
			wantArms:       1,
			wantTitles:     []string{titleBackgroundDenied},
		},
		{
			name:           "background denied with strict policy",
			gate:           fakeGate{result: permission.BackgroundDenied},
			foregroundOnly: false,
			wantOutcome:    OutcomeBackgroundDenied,
			wantTitles:     []string{titleBackgroundDenied},
		},
		{
			name:           "registration failure",
			gate:           fakeGate{result: permission.Granted},
			armErr:         &geofence.RegistrationError{Cause: errors.New("service offline")},
			foregroundOnly: true,
			wantOutcome:    OutcomeUnavailable,
			wantArms:       1,
			wantTitles:     []string{titleUnavailable},
			wantErr:        true,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			monitor := &fakeMonitor{armErr: tc.armErr}
			alerts := &recordingNotifier{}
			var readyOutcome string
			readyZones := -1

			r := New(zerolog.Nop(), tc.gate, monitor, testZones(), alerts,
				WithForegroundOnly(tc.foregroundOnly),
				WithReadiness(func(outcome string, zones int) {
					readyOutcome = outcome
					readyZones = zones
				}),
				WithIDGenerator(func() string { return "alert-1" }),
			)

			outcome, err := r.Start(context.Background())
			if outcome != tc.wantOutcome {
				t.Fatalf("expected outcome %s, got %s", tc.wantOutcome, outcome)
			}
			if (err != nil) != tc.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if err != nil {
				var startupErr *StartupError
				if !errors.As(err, &startupErr) {
					t.Fatalf("expected StartupError, got %T", err)
				}
			}

			arms, _ := monitor.counts()
			if arms != tc.wantArms {
				t.Fatalf("expected %d arm calls, got %d", tc.wantArms, arms)
			}

			titles := alerts.titles()
			if len(titles) != len(tc.wantTitles) {
				t.Fatalf("expected alerts %v, got %v", tc.wantTitles, titles)
			}
			for i := range titles {
				if titles[i] != tc.wantTitles[i] {
					t.Fatalf("expected alerts %v, got %v", tc.wantTitles, titles)
				}
			}

			if readyOutcome != string(tc.wantOutcome) {
				t.Fatalf("readiness outcome %q, want %q", readyOutcome, tc.wantOutcome)
			}
			wantZones := 0
			if tc.wantOutcome == OutcomeArmed {
				wantZones = 2
			}
			if readyZones != wantZones {
				t.Fatalf("readiness zones %d, want %d", readyZones, wantZones)
			}

			gotOutcome, gotErr := r.Outcome()
			if gotOutcome != outcome || !errors.Is(gotErr, err) {
				t.Fatalf("Outcome() = %s, %v", gotOutcome, gotErr)
			}
		})
	}
}

func TestRunner_RegistrationAlertCarriesCause(t *testing.T) {
	monitor := &fakeMonitor{armErr: &geofence.RegistrationError{Cause: errors.New("service offline")}}
	alerts := &recordingNotifier{}
	r := New(zerolog.Nop(), fakeGate{result: permission.Granted}, monitor, testZones(), alerts)

	_, err := r.Start(context.Background())
	if !errors.Is(err, geofence.ErrRegistrationFailed) {
		t.Fatalf("expected ErrRegistrationFailed, got %v", err)
	}
	if len(alerts.alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(alerts.alerts))
	}
	alert := alerts.alerts[0]
	if alert.ZoneID != "" || alert.Key() != "system" {
		t.Fatalf("startup alerts must not carry a zone: %+v", alert)
	}
	if alert.Body == "" || alert.ID == "" || alert.At.IsZero() {
		t.Fatalf("incomplete alert: %+v", alert)
	}
}

func TestRunner_Run_DisarmsOnCancel(t *testing.T) {
	monitor := &fakeMonitor{}
	started := make(chan struct{})
	r := New(zerolog.Nop(), fakeGate{result: permission.Granted}, monitor, testZones(), nil,
		WithReadiness(func(string, int) { close(started) }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx)
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatalf("startup did not finish")
	}
	if _, disarms := monitor.counts(); disarms != 0 {
		t.Fatalf("disarmed before shutdown")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("runner did not stop after cancel")
	}

	arms, disarms := monitor.counts()
	if arms != 1 || disarms != 1 {
		t.Fatalf("expected one arm and one disarm, got %d/%d", arms, disarms)
	}
}

func TestRunner_Run_SkipsDisarmWhenNotArmed(t *testing.T) {
	monitor := &fakeMonitor{}
	r := New(zerolog.Nop(), fakeGate{result: permission.ForegroundDenied}, monitor, testZones(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	arms, disarms := monitor.counts()
	if arms != 0 || disarms != 0 {
		t.Fatalf("expected no monitor calls, got %d/%d", arms, disarms)
	}
}
