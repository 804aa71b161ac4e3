package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "newsgrid %s (revision %s)\n", version, cfg.Revision)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
