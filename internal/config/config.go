package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nholik/geofence-sentinel/internal/permission"
)

const (
	envLogLevel            = "GS_LOG_LEVEL"
	envHTTPPort            = "GS_HTTP_PORT"
	envMetricsPort         = "GS_METRICS_PORT"
	envZonesFile           = "GS_ZONES_FILE"
	envSlackWebhookURL     = "GS_SLACK_WEBHOOK_URL"
	envWebhookURL          = "GS_WEBHOOK_URL"
	envWebhookTemplate     = "GS_WEBHOOK_TEMPLATE"
	envDryRun              = "GS_DRY_RUN"
	envForegroundAccess    = "GS_FOREGROUND_ACCESS"
	envBackgroundAccess    = "GS_BACKGROUND_ACCESS"
	envAllowForegroundOnly = "GS_ALLOW_FOREGROUND_ONLY"
	envHeartbeatInterval   = "GS_HEARTBEAT_INTERVAL"
	envEventQueueSize      = "GS_EVENT_QUEUE_SIZE"
	envGeocoderURL         = "GS_GEOCODER_URL"
	envGeocoderUserAgent   = "GS_GEOCODER_USER_AGENT"
)

const (
	defaultLogLevel          = "info"
	defaultHTTPPort          = 8080
	defaultHeartbeatInterval = 30 * time.Second
	defaultEventQueueSize    = 64
	defaultGeocoderURL       = "https://nominatim.openstreetmap.org"
	defaultGeocoderUserAgent = "geofence-sentinel"
)

// Config describes runtime configuration loaded from the environment.
type Config struct {
	LogLevel            string
	HTTPPort            int
	MetricsPort         int
	ZonesFile           string
	SlackWebhookURL     string
	WebhookURL          string
	WebhookTemplate     string
	DryRun              bool
	ForegroundAccess    permission.Status
	BackgroundAccess    permission.Status
	AllowForegroundOnly bool
	HeartbeatInterval   time.Duration
	EventQueueSize      int
	GeocoderURL         string
	GeocoderUserAgent   string
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		LogLevel:            defaultLogLevel,
		HTTPPort:            defaultHTTPPort,
		ForegroundAccess:    permission.StatusGranted,
		BackgroundAccess:    permission.StatusGranted,
		AllowForegroundOnly: true,
		HeartbeatInterval:   defaultHeartbeatInterval,
		EventQueueSize:      defaultEventQueueSize,
		GeocoderURL:         defaultGeocoderURL,
		GeocoderUserAgent:   defaultGeocoderUserAgent,
	}
}

// Load reads configuration from environment variables and a local .env file if present.
// Existing environment variables take precedence over values in .env.
func Load() (Config, error) {
	if err := loadDotEnvIfPresent(".env"); err != nil {
		return Config{}, err
	}

	cfg := Default()

	if value, ok := lookupTrimmed(envLogLevel); ok && value != "" {
		cfg.LogLevel = value
	}

	var err error
	if cfg.HTTPPort, err = lookupPort(envHTTPPort, cfg.HTTPPort); err != nil {
		return Config{}, err
	}
	if cfg.MetricsPort, err = lookupPort(envMetricsPort, cfg.MetricsPort); err != nil {
		return Config{}, err
	}

	if value, ok := lookupTrimmed(envZonesFile); ok {
		cfg.ZonesFile = value
	}

	if value, ok := lookupTrimmed(envSlackWebhookURL); ok && value != "" {
		if err := validateURL(value, envSlackWebhookURL); err != nil {
			return Config{}, err
		}
		cfg.SlackWebhookURL = value
	}

	if value, ok := lookupTrimmed(envWebhookURL); ok && value != "" {
		if err := validateURL(value, envWebhookURL); err != nil {
			return Config{}, err
		}
		cfg.WebhookURL = value
	}

	// templates may carry meaningful whitespace
	if value, ok := os.LookupEnv(envWebhookTemplate); ok {
		cfg.WebhookTemplate = value
	}

	if cfg.DryRun, err = lookupBool(envDryRun, cfg.DryRun); err != nil {
		return Config{}, err
	}
	if cfg.AllowForegroundOnly, err = lookupBool(envAllowForegroundOnly, cfg.AllowForegroundOnly); err != nil {
		return Config{}, err
	}

	if cfg.ForegroundAccess, err = lookupStatus(envForegroundAccess, cfg.ForegroundAccess); err != nil {
		return Config{}, err
	}
	if cfg.BackgroundAccess, err = lookupStatus(envBackgroundAccess, cfg.BackgroundAccess); err != nil {
		return Config{}, err
	}

	if value, ok := lookupTrimmed(envHeartbeatInterval); ok {
		interval, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envHeartbeatInterval, err)
		}
		if interval <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than zero", envHeartbeatInterval)
		}
		cfg.HeartbeatInterval = interval
	}

	if value, ok := lookupTrimmed(envEventQueueSize); ok {
		size, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envEventQueueSize, err)
		}
		if size <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than zero", envEventQueueSize)
		}
		cfg.EventQueueSize = size
	}

	if value, ok := lookupTrimmed(envGeocoderURL); ok && value != "" {
		cfg.GeocoderURL = value
	}
	if err := validateURL(cfg.GeocoderURL, envGeocoderURL); err != nil {
		return Config{}, err
	}

	if value, ok := lookupTrimmed(envGeocoderUserAgent); ok && value != "" {
		cfg.GeocoderUserAgent = value
	}

	return cfg, nil
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func lookupPort(key string, fallback int) (int, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return fallback, nil
	}
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("%s must be between 0 and 65535", key)
	}
	return port, nil
}

func lookupBool(key string, fallback bool) (bool, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func lookupStatus(key string, fallback permission.Status) (permission.Status, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return fallback, nil
	}
	status, err := permission.ParseStatus(value)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", key, err)
	}
	return status, nil
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}

func validateURL(value, name string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid %s: must include scheme and host", name)
	}
	return nil
}
