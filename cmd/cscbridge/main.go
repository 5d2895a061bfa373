package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

var rootCmd = &cobra.Command{
	Use:   "cscbridge",
	Short: "ANT+ sensor to Bluetooth LE bridge",
	Long: `Re-publishes bike speed, bike cadence, heart rate and foot pod telemetry as
Bluetooth LE GATT profiles:

- Cycling Speed and Cadence (0x1816)
- Running Speed and Cadence (0x1814)
- Heart Rate (0x180D)

Sensor values come from a Lua ride simulator or from a PTY line protocol; see the
serve command. Any number of centrals may subscribe; every subscriber receives the
latest measurements once per notification interval.`,
	Version: fmt.Sprintf("%s (commit %s, built %s)", formatVersion(version), commit, date),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/cscbridge/config.yaml)")

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
