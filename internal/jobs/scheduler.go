// Package jobs runs the periodic housekeeping of the server: expired
// sessions and idle screen state.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Func is one unit of periodic work.
type Func func(ctx context.Context) error

// Scheduler runs named jobs on cron schedules. A job that is still running
// when its next tick fires is skipped; a panicking job is logged and the
// schedule continues.
type Scheduler struct {
	cron    *cron.Cron
	log     *slog.Logger
	timeout time.Duration
}

// New creates a stopped Scheduler. Every run gets a context bounded by
// timeout (no bound when zero).
func New(log *slog.Logger, timeout time.Duration) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	cl := cronLogger{log: log}
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		log:     log,
		timeout: timeout,
	}
}

// Add registers fn under name. spec is a standard five-field cron
// expression or a descriptor such as "@every 5m".
func (s *Scheduler) Add(name, spec string, fn Func) error {
	if _, err := s.cron.AddFunc(spec, func() { s.run(name, fn) }); err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	s.log.Info("job scheduled", slog.String("job", name), slog.String("schedule", spec))
	return nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running ones until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow executes fn immediately with the same logging as a scheduled run.
func (s *Scheduler) RunNow(name string, fn Func) {
	s.run(name, fn)
}

func (s *Scheduler) run(name string, fn Func) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	if err := fn(ctx); err != nil {
		s.log.Error("job failed", slog.String("job", name), slog.Any("error", err), slog.Duration("duration", time.Since(start)))
		return
	}
	s.log.Debug("job finished", slog.String("job", name), slog.Duration("duration", time.Since(start)))
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append([]any{slog.Any("error", err)}, keysAndValues...)...)
}
