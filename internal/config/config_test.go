package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nholik/geofence-sentinel/internal/permission"
)

func TestLoad_ValidationAndDefaults(t *testing.T) {
	withDefaults := func(mutate func(*Config)) Config {
		cfg := Default()
		mutate(&cfg)
		return cfg
	}

	cases := []struct {
		name    string
		env     map[string]string
		wantErr bool
		want    Config
	}{
		{
			name: "defaults applied",
			env:  map[string]string{},
			want: Default(),
		},
		{
			name:    "invalid heartbeat interval",
			env:     map[string]string{envHeartbeatInterval: "nope"},
			wantErr: true,
		},
		{
			name:    "zero heartbeat interval",
			env:     map[string]string{envHeartbeatInterval: "0s"},
			wantErr: true,
		},
		{
			name:    "negative heartbeat interval",
			env:     map[string]string{envHeartbeatInterval: "-5s"},
			wantErr: true,
		},
		{
			name:    "invalid http port",
			env:     map[string]string{envHTTPPort: "http"},
			wantErr: true,
		},
		{
			name:    "out of range metrics port",
			env:     map[string]string{envMetricsPort: "70000"},
			wantErr: true,
		},
		{
			name:    "invalid queue size",
			env:     map[string]string{envEventQueueSize: "0"},
			wantErr: true,
		},
		{
			name:    "invalid dry run",
			env:     map[string]string{envDryRun: "maybe"},
			wantErr: true,
		},
		{
			name:    "invalid foreground access",
			env:     map[string]string{envForegroundAccess: "sometimes"},
			wantErr: true,
		},
		{
			name:    "invalid slack webhook url",
			env:     map[string]string{envSlackWebhookURL: "not-a-url"},
			wantErr: true,
		},
		{
			name:    "invalid webhook url",
			env:     map[string]string{envWebhookURL: "example.com/hook"},
			wantErr: true,
		},
		{
			name:    "invalid geocoder url",
			env:     map[string]string{envGeocoderURL: "nominatim"},
			wantErr: true,
		},
		{
			name: "valid slack webhook url",
			env: map[string]string{
				envSlackWebhookURL: "https://hooks.slack.com/services/T00/B00/XXX",
			},
			want: withDefaults(func(c *Config) {
				c.SlackWebhookURL = "https://hooks.slack.com/services/T00/B00/XXX"
			}),
		},
		{
			name: "denied background with strict policy",
			env: map[string]string{
				envBackgroundAccess:    "DENIED",
				envAllowForegroundOnly: "false",
			},
			want: withDefaults(func(c *Config) {
				c.BackgroundAccess = permission.StatusDenied
				c.AllowForegroundOnly = false
			}),
		},
		{
			name: "custom ports heartbeat and queue",
			env: map[string]string{
				envHTTPPort:          "9000",
				envMetricsPort:       "9100",
				envHeartbeatInterval: "45s",
				envEventQueueSize:    "8",
				envLogLevel:          "debug",
				envDryRun:            "true",
				envZonesFile:         "/etc/zones.yaml",
			},
			want: withDefaults(func(c *Config) {
				c.HTTPPort = 9000
				c.MetricsPort = 9100
				c.HeartbeatInterval = 45 * time.Second
				c.EventQueueSize = 8
				c.LogLevel = "debug"
				c.DryRun = true
				c.ZonesFile = "/etc/zones.yaml"
			}),
		},
		{
			name: "http port zero disables server",
			env:  map[string]string{envHTTPPort: "0"},
			want: withDefaults(func(c *Config) {
				c.HTTPPort = 0
			}),
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			restoreDir := mustChdir(t, tmpDir)
			defer restoreDir()

			clearEnv(t)
			for key, value := range tc.env {
				t.Setenv(key, value)
			}

			got, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tc.want {
				t.Fatalf("unexpected config: %+v", got)
			}
		})
	}
}

func TestLoad_WebhookTemplateKeepsWhitespace(t *testing.T) {
	restoreDir := mustChdir(t, t.TempDir())
	defer restoreDir()
	clearEnv(t)

	tmpl := "  {\"zone\": {{ toJson .Alert.ZoneID }}}\n"
	t.Setenv(envWebhookTemplate, tmpl)

	got, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.WebhookTemplate != tmpl {
		t.Fatalf("template was modified: %q", got.WebhookTemplate)
	}
}

func TestLoad_DotEnvAndEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	restoreDir := mustChdir(t, tmpDir)
	defer restoreDir()
	clearEnv(t)

	dotenv := []byte(`
# example .env
GS_WEBHOOK_URL=https://example.com/from-dotenv
GS_SLACK_WEBHOOK_URL=https://hooks.slack.com/services/test
GS_HTTP_PORT=9090
`)

	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), dotenv, 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	t.Setenv(envWebhookURL, "https://example.com/from-env")
	t.Setenv(envHTTPPort, "7070")

	got, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.WebhookURL != "https://example.com/from-env" {
		t.Fatalf("webhook url did not prefer env: %s", got.WebhookURL)
	}
	if got.HTTPPort != 7070 {
		t.Fatalf("http port did not prefer env: %d", got.HTTPPort)
	}
	if got.SlackWebhookURL != "https://hooks.slack.com/services/test" {
		t.Fatalf("slack webhook url not loaded from .env: %s", got.SlackWebhookURL)
	}
	if got.HeartbeatInterval != defaultHeartbeatInterval {
		t.Fatalf("unexpected heartbeat interval: %s", got.HeartbeatInterval)
	}
}

// clearEnv blanks every variable Load reads so values from the host or an
// earlier .env load cannot leak into a case.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		envLogLevel, envHTTPPort, envMetricsPort, envZonesFile, envSlackWebhookURL,
		envWebhookURL, envWebhookTemplate, envDryRun, envForegroundAccess,
		envBackgroundAccess, envAllowForegroundOnly, envHeartbeatInterval,
		envEventQueueSize, envGeocoderURL, envGeocoderUserAgent,
	}
	for _, key := range keys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unsetenv %s: %v", key, err)
		}
	}
}

func mustChdir(t *testing.T, dir string) func() {
	t.Helper()
	original, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	return func() {
		if err := os.Chdir(original); err != nil {
			t.Fatalf("restore dir: %v", err)
		}
	}
}
