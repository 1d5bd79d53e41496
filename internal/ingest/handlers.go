// Package ingest exposes the device-facing HTTP API: position fixes,
// relayed platform geofence events, zone markers and directions.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nholik/geofence-sentinel/internal/geocode"
	"github.com/nholik/geofence-sentinel/internal/geofence"
	"github.com/nholik/geofence-sentinel/internal/navigate"
	"github.com/nholik/geofence-sentinel/internal/tracker"
	"github.com/nholik/geofence-sentinel/internal/zone"
	"github.com/rs/zerolog"
)

const (
	maxBodyBytes          = 64 << 10
	defaultRequestTimeout = 5 * time.Second
)

// Tracker accepts position fixes and relayed events.
type Tracker interface {
	Update(ctx context.Context, pos tracker.Position) error
	Relay(ctx context.Context, d geofence.Delivery) error
}

// Geocoder resolves free-text place names.
type Geocoder interface {
	Lookup(ctx context.Context, text string) (zone.Coordinate, error)
}

// Handlers serves the /v1 API.
type Handlers struct {
	logger   zerolog.Logger
	tracker  Tracker
	registry *zone.Registry
	geocoder Geocoder

	requestTimeout time.Duration
}

// Option customizes Handlers behavior.
type Option func(*Handlers)

// WithRequestTimeout bounds how long a position or event request may wait
// for room in the delivery queue.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handlers) {
		if d > 0 {
			h.requestTimeout = d
		}
	}
}

// New constructs Handlers. A nil geocoder disables /v1/directions.
func New(logger zerolog.Logger, t Tracker, registry *zone.Registry, geocoder Geocoder, opts ...Option) *Handlers {
	h := &Handlers{
		logger:         logger,
		tracker:        t,
		registry:       registry,
		geocoder:       geocoder,
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the API routes on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/positions", h.handlePosition)
	mux.HandleFunc("POST /v1/events", h.handleEvent)
	mux.HandleFunc("GET /v1/zones", h.handleZones)
	mux.HandleFunc("GET /v1/directions", h.handleDirections)
}

type positionRequest struct {
	Latitude       *float64   `json:"latitude"`
	Longitude      *float64   `json:"longitude"`
	AccuracyMeters float64    `json:"accuracy_m"`
	RecordedAt     *time.Time `json:"recorded_at"`
}

type eventRequest struct {
	ZoneID     string     `json:"zone_id"`
	Kind       string     `json:"kind"`
	OccurredAt *time.Time `json:"occurred_at"`
}

// Marker is a zone as drawn on a map.
type Marker struct {
	ID           string  `json:"id"`
	Label        string  `json:"label"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_m"`
}

// DirectionsResponse carries the resolved destination and app deep link.
type DirectionsResponse struct {
	Query       string          `json:"query"`
	Destination zone.Coordinate `json:"destination"`
	URL         string          `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handlers) handlePosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeError(w, http.StatusBadRequest, errors.New("latitude and longitude are required"))
		return
	}
	if req.AccuracyMeters < 0 {
		writeError(w, http.StatusBadRequest, errors.New("accuracy_m cannot be negative"))
		return
	}

	pos := tracker.Position{
		Coordinate:     zone.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude},
		AccuracyMeters: req.AccuracyMeters,
	}
	if req.RecordedAt != nil {
		pos.RecordedAt = req.RecordedAt.UTC()
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()
	if err := h.tracker.Update(ctx, pos); err != nil {
		h.writeTrackerError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) handleEvent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		// forwarded so the monitor reports it like any other failed delivery
		if relayErr := h.tracker.Relay(ctx, geofence.Delivery{Err: err}); relayErr != nil {
			h.logger.Debug().Err(relayErr).Msg("failed delivery not relayed")
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	d := geofence.Delivery{ZoneID: req.ZoneID, Kind: req.Kind}
	if req.OccurredAt != nil {
		d.At = req.OccurredAt.UTC()
	}
	if err := h.tracker.Relay(ctx, d); err != nil {
		h.writeTrackerError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) handleZones(w http.ResponseWriter, r *http.Request) {
	zones := h.registry.Zones()
	markers := make([]Marker, 0, len(zones))
	for _, z := range zones {
		markers = append(markers, Marker{
			ID:           z.ID,
			Label:        z.DisplayName(),
			Latitude:     z.Center.Latitude,
			Longitude:    z.Center.Longitude,
			RadiusMeters: z.RadiusMeters,
		})
	}
	writeJSON(w, http.StatusOK, markers)
}

func (h *Handlers) handleDirections(w http.ResponseWriter, r *http.Request) {
	if h.geocoder == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("geocoding is not configured"))
		return
	}

	params := r.URL.Query()
	text := strings.TrimSpace(params.Get("q"))
	if text == "" {
		writeError(w, http.StatusBadRequest, geocode.ErrEmptyQuery)
		return
	}
	mode, err := navigate.ParseTravelMode(params.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var origin *zone.Coordinate
	if raw := strings.TrimSpace(params.Get("origin")); raw != "" {
		c, err := navigate.ParseCoordinate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid origin: %w", err))
			return
		}
		origin = &c
	}

	dest, err := h.geocoder.Lookup(r.Context(), text)
	switch {
	case errors.Is(err, geocode.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		h.logger.Warn().Err(err).Str("query", text).Msg("geocode lookup failed")
		writeError(w, http.StatusBadGateway, errors.New("geocoder unavailable"))
		return
	}

	link, err := navigate.DirectionsURL(origin, dest, mode)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, DirectionsResponse{Query: text, Destination: dest, URL: link})
}

func (h *Handlers) writeTrackerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tracker.ErrInvalidPosition):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, tracker.ErrNotArmed):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, errors.New("delivery queue busy"))
	default:
		h.logger.Error().Err(err).Msg("tracker rejected input")
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
