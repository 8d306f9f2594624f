// Package main provides the armctl CLI: the controller daemon (serve)
// and thin client commands for goals, modes, and the vendor controller's
// RAPID service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configFile is set by the --config flag.
	configFile string

	// apiURL is the armctl API base for client commands.
	apiURL string

	// robotURL is the RAPID service base for direct controller commands.
	robotURL string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "armctl",
	Short: "armctl is a joint-trajectory controller for a 6-axis arm",
	Long: `armctl runs a supervisory joint-trajectory controller for a 6-axis
industrial arm: it follows time-parameterized joint goals with tracking
supervision, exposes them over REST/WebSocket, and forwards program
start/stop, digital IO and event log calls to the vendor controller.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: armctl.yaml or ~/.armctl/armctl.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "http://127.0.0.1:8080", "armctl API base URL")
	rootCmd.PersistentFlags().StringVar(&robotURL, "robot", "", "RAPID service base URL (default from config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(goalCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(ioCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("armctl v0.1.0")
	},
}
