// Package scheduler wires up the cron job that periodically triggers an
// ingestion cycle.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Runner is one unit of periodic work. Run must log its own failures.
type Runner interface {
	Run(ctx context.Context)
}

// Scheduler wraps robfig/cron and manages the ingestion loop.
type Scheduler struct {
	cron       *cron.Cron
	runner     Runner
	spec       string // cron spec, e.g. "@every 30m"
	runOnStart bool
	logger     *zap.Logger

	startup sync.WaitGroup
}

// New creates a Scheduler that fires every interval. A tick that arrives while
// the previous run is still going is skipped.
func New(runner Runner, interval time.Duration, runOnStart bool, logger *zap.Logger) *Scheduler {
	logger = logger.Named("scheduler")
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		runner:     runner,
		spec:       fmt.Sprintf("@every %s", interval),
		runOnStart: runOnStart,
		logger:     logger,
	}
}

// Start registers the job and starts the scheduler. With runOnStart it also
// runs one cycle immediately so listings appear without waiting for a tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runner.Run(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("cron started", zap.String("spec", s.spec))

	if s.runOnStart {
		s.startup.Add(1)
		go func() {
			defer s.startup.Done()
			s.runner.Run(ctx)
		}()
	}
	return nil
}

// Stop shuts down the scheduler and waits for running jobs to return,
// including the startup run.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.startup.Wait()
	s.logger.Info("cron stopped")
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
