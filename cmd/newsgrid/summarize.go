package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thomaskoefod/newsgrid/internal/apperr"
	"github.com/thomaskoefod/newsgrid/internal/summary"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize a stored article or arbitrary text",
	Long: `Summarize a stored article (cached in the summary store) or a piece of text
(never stored).

Examples:
  newsgrid summarize --article 3f1c...   # reuses a stored summary when present
  newsgrid summarize --text "..."        # one-off summary`,
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)

	summarizeCmd.Flags().String("article", "", "article id to summarize")
	summarizeCmd.Flags().String("text", "", "text to summarize without storing")
	summarizeCmd.MarkFlagsMutuallyExclusive("article", "text")
	summarizeCmd.MarkFlagsOneRequired("article", "text")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	articleID, _ := cmd.Flags().GetString("article")
	text, _ := cmd.Flags().GetString("text")

	a, err := openApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var res *summary.Result
	if articleID != "" {
		res, err = a.summaries.SummarizeArticle(cmd.Context(), articleID)
	} else {
		res, err = a.summaries.SummarizeText(cmd.Context(), text)
	}
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return errors.New(appErr.Message)
		}
		return fmt.Errorf("summarizing: %w", err)
	}

	if res.Cached {
		logger.Debug("returned stored summary", "article_id", res.ArticleID)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Summary)
	return nil
}
