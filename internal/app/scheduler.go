package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"hypervisor-analytics/internal/ingestion"
	"hypervisor-analytics/internal/service"
)

// jobTimeout bounds each scheduled run.
const jobTimeout = 10 * time.Minute

// Scheduler runs ingestion and batch analysis on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler registers the jobs. An empty spec disables its job; a nil
// runner disables ingestion.
func NewScheduler(ctx context.Context, analytics *service.Analytics, runner *ingestion.Runner, analyzeSpec, ingestSpec string, logger *zap.Logger) (*Scheduler, error) {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cronLogger), cron.Recover(cronLogger)))

	if runner != nil && ingestSpec != "" {
		_, err := c.AddFunc(ingestSpec, func() {
			rctx, cancel := context.WithTimeout(ctx, jobTimeout)
			defer cancel()
			res, err := runner.Sync(rctx)
			if err != nil {
				logger.Warn("Scheduled ingestion finished with errors", zap.Error(err))
			}
			if res != nil {
				logger.Info("Scheduled ingestion",
					zap.Int("hypervisors", res.Hypervisors),
					zap.Int("periods", res.Periods),
					zap.Int("ledger", res.Ledger),
					zap.Int("failed", res.Failed))
			}
		})
		if err != nil {
			return nil, err
		}
	}

	if analyzeSpec != "" {
		_, err := c.AddFunc(analyzeSpec, func() {
			rctx, cancel := context.WithTimeout(ctx, jobTimeout)
			defer cancel()
			if _, err := analytics.AnalyzeAll(rctx); err != nil {
				logger.Warn("Scheduled analysis finished with errors", zap.Error(err))
			}
		})
		if err != nil {
			return nil, err
		}
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Cron started", zap.Int("jobs", s.Jobs()))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
