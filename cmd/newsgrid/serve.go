package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thomaskoefod/newsgrid/internal/api"
	"github.com/thomaskoefod/newsgrid/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the article, ingestion and summarization endpoints.

When ingest.schedule is set, feeds are also ingested on that cron schedule.
--ingest-on-start runs one ingestion in the background before the first tick.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().Bool("ingest-on-start", false, "ingest all feeds once at startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	a, err := openApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Inference.APIKey == "" {
		logger.Warn("HF_API_KEY is not set, summarization requests will fail")
	}

	ingestOnStart, _ := cmd.Flags().GetBool("ingest-on-start")

	sched, err := scheduler.New(cfg.Ingest.Schedule, a.fetcher.FetchAllFeeds, logger)
	if err != nil {
		return fmt.Errorf("invalid ingest.schedule: %w", err)
	}
	sched.Start()
	defer sched.Stop()
	if ingestOnStart {
		logger.Info("ingesting feeds at startup", "feeds", len(a.fetcher.Sources()))
		go sched.RunNow()
	}

	e := api.NewRouter(api.Deps{
		Articles:   a.db,
		Ingester:   a.fetcher,
		Summarizer: a.summaries,
		Logger:     logger,
		Revision:   cfg.Revision,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.Server.Addr, "revision", cfg.Revision)
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
