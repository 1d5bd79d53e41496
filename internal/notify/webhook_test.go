package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWebhookNotifierTemplateRendering(t *testing.T) {
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(zerolog.Nop(), server.URL, `{"zone":"{{ .Alert.ZoneID }}","text":"{{ .Alert.Body }}"}`)
	if err != nil {
		t.Fatalf("NewWebhookNotifier error: %v", err)
	}

	if err := notifier.Notify(context.Background(), makeAlert("Z1", "ENTER")); err != nil {
		t.Fatalf("Notify error: %v", err)
	}

	if !strings.Contains(body, `"zone":"Z1"`) {
		t.Fatalf("expected zone in payload, got %s", body)
	}
	if !strings.Contains(body, `"text":"You entered Chaprashir hat"`) {
		t.Fatalf("expected body in payload, got %s", body)
	}
}

func TestWebhookNotifierDefaultTemplate(t *testing.T) {
	var payload struct {
		Alert       Alert     `json:"alert"`
		GeneratedAt time.Time `json:"generated_at"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(zerolog.Nop(), server.URL, "")
	if err != nil {
		t.Fatalf("NewWebhookNotifier error: %v", err)
	}

	if err := notifier.Notify(context.Background(), makeAlert("Z1", "EXIT")); err != nil {
		t.Fatalf("Notify error: %v", err)
	}
	if payload.Alert.ZoneID != "Z1" || payload.Alert.Kind != "EXIT" {
		t.Fatalf("unexpected alert payload: %+v", payload.Alert)
	}
	if !strings.Contains(payload.Alert.Body, "exited") {
		t.Fatalf("expected exited in body, got %q", payload.Alert.Body)
	}
	if payload.GeneratedAt.IsZero() {
		t.Fatalf("expected generated_at to be set")
	}
}

func TestWebhookNotifierRetriesOnServerError(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&calls, 1)
		if count <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(zerolog.Nop(), server.URL, "")
	if err != nil {
		t.Fatalf("NewWebhookNotifier error: %v", err)
	}
	notifier.poster.timing.backoffInitial = time.Millisecond
	notifier.poster.timing.backoffMax = 2 * time.Millisecond
	notifier.poster.timing.backoffMaxElapsed = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := notifier.Notify(ctx, makeAlert("Z1", "ENTER")); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestWebhookNotifierEmptyURL(t *testing.T) {
	notifier, err := NewWebhookNotifier(zerolog.Nop(), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notifier != nil {
		t.Fatalf("expected nil notifier for empty url")
	}
	if err := notifier.Notify(context.Background(), makeAlert("Z1", "ENTER")); err != nil {
		t.Fatalf("nil notifier should be a no-op, got %v", err)
	}
}

func TestWebhookNotifierInvalidTemplate(t *testing.T) {
	_, err := NewWebhookNotifier(zerolog.Nop(), "http://example.com", "{{")
	if err == nil {
		t.Fatalf("expected template error")
	}
}
