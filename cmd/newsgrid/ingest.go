package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch all configured feeds once",
	RunE:  runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := openApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("ingesting feeds", "feeds", len(a.fetcher.Sources()))
	inserted, err := a.fetcher.FetchAllFeeds(cmd.Context())
	if err != nil {
		return fmt.Errorf("ingesting feeds: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d new articles\n", inserted)
	return nil
}
