// Gray Logic Dialogue - voice entity resolution and slot filling
//
// This is the entry point for the dialogue service. It resolves spoken
// device and place names against the site inventory, runs the slot-filling
// conversation and sends the resulting device commands.
//
// Subcommands:
//   - serve:   run the HTTP/WebSocket service (default)
//   - turn:    play a single turn from the command line
//   - catalog: inspect the inventory or import it into SQLite
//   - history: list journalled dialogue turns
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "graylogic-dialogue",
	Short: "Gray Logic voice dialogue service",
	Long: `graylogic-dialogue turns pre-segmented voice requests into device commands.

It keeps an index of the site's floors, areas and devices, resolves spoken
names against it, asks for whatever is missing and applies the result
through MQTT or Home Assistant.

Run without a subcommand to start the service.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), configPath)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", getConfigPath(),
		"path to config.yaml (env GRAYLOGIC_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false,
		"show info logs from one-shot commands")
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)

	rootCmd.AddCommand(serveCmd, turnCmd, catalogCmd, historyCmd)
}

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
