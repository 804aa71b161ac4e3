package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/thomaskoefod/newsgrid/internal/ai"
	"github.com/thomaskoefod/newsgrid/internal/config"
	"github.com/thomaskoefod/newsgrid/internal/database"
	"github.com/thomaskoefod/newsgrid/internal/feed"
	"github.com/thomaskoefod/newsgrid/internal/summary"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "newsgrid",
	Short: "Vietnamese news aggregator with AI summaries",
	Long: `newsgrid ingests VnExpress, VietnamNet and DanTri feeds into a local
SQLite store and summarizes articles through the Hugging Face inference API.

Example usage:
  newsgrid serve               # HTTP API on :8080
  newsgrid ingest              # Fetch all feeds once
  newsgrid summarize --article <id>
  newsgrid tui                 # Browse articles in the terminal`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd.ErrOrStderr())
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is "+config.DefaultConfigPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig loads .env, the config file and environment overrides, then
// builds the logger from the log section.
func initConfig(logOut io.Writer) error {
	// .env is optional
	_ = godotenv.Load()

	path := cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	var err error
	cfg, err = config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger = newLogger(logOut, cfg.Log, verbose)
	slog.SetDefault(logger)

	logger.Debug("configuration loaded",
		"config", path,
		"database", cfg.Database.Path,
		"feeds", len(cfg.Feeds),
		"schedule", cfg.Ingest.Schedule,
	)
	return nil
}

func newLogger(w io.Writer, lc config.LogConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

type app struct {
	db        *database.DB
	fetcher   *feed.Fetcher
	summaries *summary.Service
}

// openApp wires the store, the ingestion pipeline and the summarization
// service from the loaded configuration.
func openApp(log *slog.Logger) (*app, error) {
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	fetchTimeout, _ := cfg.Ingest.GetFetchTimeout()
	fetcher := feed.NewFetcher(db, cfg.Sources(),
		feed.WithParser(feed.NewParser(fetchTimeout, cfg.Ingest.UserAgent)),
		feed.WithLogger(log),
	)

	timeout, _ := cfg.Inference.GetTimeout()
	retryDelay, _ := cfg.Inference.GetRetryDelay()
	client := ai.NewClient(cfg.Inference.Endpoint, cfg.Inference.APIKey,
		ai.WithTimeout(timeout),
		ai.WithRetryDelay(retryDelay),
		ai.WithLogger(log),
	)

	return &app{
		db:        db,
		fetcher:   fetcher,
		summaries: summary.NewService(db, client, log),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}
