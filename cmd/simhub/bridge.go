package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ioprotolab/simhub/internal/bridge"
)

var bridgeMappingFile string

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Validate a bridge mapping file without starting any servers",
	Long: "Loads a bridge mapping file and prints the parsed mappings, so a mapping\n" +
		"file can be checked before being pointed at by 'simhub serve --config'.",
	RunE: runBridge,
}

func init() {
	bridgeCmd.Flags().StringVar(&bridgeMappingFile, "mapping", "", "Bridge mapping file (JSON or YAML)")
	_ = bridgeCmd.MarkFlagRequired("mapping")
}

func runBridge(cmd *cobra.Command, args []string) error {
	mappings, err := bridge.LoadMappingFile(bridgeMappingFile)
	if err != nil {
		return fmt.Errorf("load mapping file: %w", err)
	}

	out, err := json.MarshalIndent(mappings, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%d mapping(s) loaded successfully:\n%s\n", len(mappings), out)
	return nil
}
