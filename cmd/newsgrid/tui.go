package main

import (
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/thomaskoefod/newsgrid/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse and summarize articles in the terminal",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Log lines written to the terminal would corrupt the screen.
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		f, err := tea.LogToFile("newsgrid-debug.log", "newsgrid")
		if err != nil {
			return fmt.Errorf("opening debug log: %w", err)
		}
		defer f.Close()
		log = newLogger(f, cfg.Log, true)
	}

	a, err := openApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	p := tea.NewProgram(tui.New(a.db, a.fetcher, a.summaries))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}
