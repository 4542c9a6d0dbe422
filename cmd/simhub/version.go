package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the simhub version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("simhub v%s\n", version)
	},
}
