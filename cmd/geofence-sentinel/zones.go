package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/nholik/geofence-sentinel/internal/zone"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func zonesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "zones",
		Short: "List the configured zones",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := zone.LoadFile(zonesFile)
			if err != nil {
				return err
			}
			return writeZones(os.Stdout, registry.Zones(), outputFormat)
		},
	}
}

func writeZones(w io.Writer, zones []zone.Zone, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(zones)
	case "table":
		if len(zones) == 0 {
			_, err := fmt.Fprintln(w, "No zones configured")
			return err
		}
		table := tablewriter.NewWriter(w)
		table.Header("ID", "Label", "Latitude", "Longitude", "Radius (m)")
		for _, z := range zones {
			table.Append([]string{
				z.ID,
				z.DisplayName(),
				fmt.Sprintf("%.6f", z.Center.Latitude),
				fmt.Sprintf("%.6f", z.Center.Longitude),
				fmt.Sprintf("%.0f", z.RadiusMeters),
			})
		}
		return table.Render()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
