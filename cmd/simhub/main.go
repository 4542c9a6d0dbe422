// Command simhub runs the multi-protocol IoT simulation platform: the
// wire-level protocol simulators (Modbus, MQTT, OPC UA, BACnet/IP, CoAP,
// raw TCP), the bridge/automation engines, and their HTTP/WebSocket
// control surface, plus standalone bridge/loadtest/replay utilities.
//
// Each mode is its own cobra subcommand with its own flag surface, rather
// than one flat flag set shared across modes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "simhub",
	Short:   "Multi-protocol IoT simulation and debugging platform",
	Version: version,
}

func main() {
	rootCmd.AddCommand(serveCmd, bridgeCmd, loadtestCmd, replayCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
