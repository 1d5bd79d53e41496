package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	zonesFile    string
	outputFormat string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "geofence-sentinel",
		Short:        "Zone entry/exit alerts for a tracked device",
		Long:         `geofence-sentinel watches a device's location against named circular zones and raises an alert whenever it enters or exits one.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&zonesFile, "zones", os.Getenv("GS_ZONES_FILE"), "Zone YAML file (env: GS_ZONES_FILE, default: built-in zones)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(zonesCmd())
	rootCmd.AddCommand(directionsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
