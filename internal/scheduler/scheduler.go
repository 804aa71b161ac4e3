// Package scheduler runs feed ingestion on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is one ingestion run. It returns the number of inserted articles.
type Job func(ctx context.Context) (int, error)

type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	job     Job
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New parses spec as a standard five-field cron expression. An empty spec
// schedules nothing and the job only runs through RunNow.
func New(spec string, job Job, logger *slog.Logger) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("job must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		job:    job,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	if spec == "" {
		return s, nil
	}
	id, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("add cron %q: %w", spec, err)
	}
	s.entryID = id
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	if s.entryID != 0 {
		s.logger.Info("ingestion scheduled", "next", s.cron.Entry(s.entryID).Next)
	}
}

// Stop cancels a running job and waits for it to return. Runs requested
// after Stop are skipped.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.mu.Lock()
	s.mu.Unlock()
}

// RunNow runs the job synchronously, outside the schedule.
func (s *Scheduler) RunNow() {
	s.run()
}

func (s *Scheduler) run() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	inserted, err := s.job(s.ctx)
	if err != nil {
		s.logger.Error("scheduled ingestion failed", "error", err)
		return
	}
	s.logger.Info("scheduled ingestion finished", "inserted", inserted)
}
