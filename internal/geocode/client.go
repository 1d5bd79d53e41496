// Package geocode resolves free-text place names through a
// Nominatim-compatible search API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/nholik/geofence-sentinel/internal/zone"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultUserAgent    = "geofence-sentinel"
	defaultTimeout      = 10 * time.Second
	defaultRateInterval = time.Second
	errorBodyLimit      = 1024
)

var (
	// ErrNotFound is returned when the search yields no place.
	ErrNotFound = errors.New("place not found")
	// ErrEmptyQuery is returned for blank search text.
	ErrEmptyQuery = errors.New("search text is required")
)

// Client queries the /search endpoint of a geocoding service.
type Client struct {
	logger    zerolog.Logger
	baseURL   string
	userAgent string
	client    *retryablehttp.Client
	limiter   *rate.Limiter
}

// Option customizes Client behavior.
type Option func(*Client)

// WithUserAgent sets the User-Agent header; public Nominatim requires one.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateInterval sets the minimum spacing between requests. Zero disables limiting.
func WithRateInterval(interval time.Duration) Option {
	return func(c *Client) {
		if interval <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// WithRetry overrides the retry budget used for transient failures.
func WithRetry(max int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.client.RetryMax = max
		c.client.RetryWaitMin = waitMin
		c.client.RetryWaitMax = waitMax
	}
}

// NewClient constructs a Client for the service at baseURL.
func NewClient(logger zerolog.Logger, baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid geocoder url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.New("invalid geocoder url: must include scheme and host")
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	rc.HTTPClient = &http.Client{Timeout: defaultTimeout}

	c := &Client{
		logger:    logger,
		baseURL:   strings.TrimRight(parsed.String(), "/"),
		userAgent: defaultUserAgent,
		client:    rc,
		limiter:   rate.NewLimiter(rate.Every(defaultRateInterval), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Lookup returns the coordinate of the best match for text.
func (c *Client) Lookup(ctx context.Context, text string) (zone.Coordinate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return zone.Coordinate{}, ErrEmptyQuery
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return zone.Coordinate{}, err
		}
	}

	query := url.Values{}
	query.Set("q", text)
	query.Set("format", "jsonv2")
	query.Set("limit", "1")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+query.Encode(), nil)
	if err != nil {
		return zone.Coordinate{}, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return zone.Coordinate{}, fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		if bodyText := strings.TrimSpace(string(body)); bodyText != "" {
			return zone.Coordinate{}, fmt.Errorf("geocode request failed: %s (%s)", resp.Status, bodyText)
		}
		return zone.Coordinate{}, fmt.Errorf("geocode request failed: %s", resp.Status)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return zone.Coordinate{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(results) == 0 {
		return zone.Coordinate{}, ErrNotFound
	}

	coord, err := results[0].coordinate()
	if err != nil {
		return zone.Coordinate{}, err
	}
	c.logger.Debug().
		Str("query", text).
		Str("match", results[0].DisplayName).
		Str("coordinate", coord.String()).
		Msg("geocoded place")
	return coord, nil
}

func (r searchResult) coordinate() (zone.Coordinate, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return zone.Coordinate{}, fmt.Errorf("invalid latitude %q in geocode response: %w", r.Lat, err)
	}
	lng, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return zone.Coordinate{}, fmt.Errorf("invalid longitude %q in geocode response: %w", r.Lon, err)
	}
	coord := zone.Coordinate{Latitude: lat, Longitude: lng}
	if err := coord.Validate(); err != nil {
		return zone.Coordinate{}, fmt.Errorf("geocode response: %w", err)
	}
	return coord, nil
}
