package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/nholik/geofence-sentinel/internal/config"
	"github.com/nholik/geofence-sentinel/internal/geocode"
	"github.com/nholik/geofence-sentinel/internal/logging"
	"github.com/nholik/geofence-sentinel/internal/navigate"
	"github.com/nholik/geofence-sentinel/internal/zone"
	"github.com/spf13/cobra"
)

const lookupTimeout = 30 * time.Second

func directionsCmd() *cobra.Command {
	var origin, mode string

	cmd := &cobra.Command{
		Use:   "directions <place>",
		Short: "Resolve a place name and print a navigation deep link",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			travelMode, err := navigate.ParseTravelMode(mode)
			if err != nil {
				return err
			}
			var from *zone.Coordinate
			if origin != "" {
				c, err := navigate.ParseCoordinate(origin)
				if err != nil {
					return fmt.Errorf("invalid --origin: %w", err)
				}
				from = &c
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client, err := geocode.NewClient(logging.NewWithLevel(cfg.LogLevel), cfg.GeocoderURL, geocode.WithUserAgent(cfg.GeocoderUserAgent))
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
			defer cancel()

			place := strings.Join(args, " ")
			dest, err := client.Lookup(ctx, place)
			if err != nil {
				return fmt.Errorf("look up %q: %w", place, err)
			}
			link, err := navigate.DirectionsURL(from, dest, travelMode)
			if err != nil {
				return err
			}
			return writeDirections(os.Stdout, place, dest, link, outputFormat)
		},
	}

	cmd.Flags().StringVar(&origin, "origin", "", "Start point as lat,lng (default: device location)")
	cmd.Flags().StringVar(&mode, "mode", string(navigate.Driving), "Travel mode (driving, walking, bicycling, transit)")

	return cmd
}

func writeDirections(w io.Writer, place string, dest zone.Coordinate, link, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"query":       place,
			"destination": dest,
			"url":         link,
		})
	case "table":
		_, err := fmt.Fprintf(w, "%s (%s)\n%s\n", place, dest, link)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
