package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrNothingScheduled indicates Start was called without any schedule.
var ErrNothingScheduled = errors.New("no run or prune schedule configured")

// RunFunc executes one benchmark batch.
type RunFunc func(ctx context.Context) error

// Recorder receives scheduled job outcomes, typically for metrics.
type Recorder interface {
	RecordScheduledRun(err error)
	RecordPruned(n int64)
}

// Config contains the cron expressions of a Scheduler.
type Config struct {
	// RunSchedule triggers benchmark runs. Empty disables them.
	RunSchedule string `yaml:"run"`

	// PruneSchedule triggers run-store pruning. Empty disables it.
	PruneSchedule string `yaml:"prune"`

	// RetentionDays is how long stored runs are kept. 0 keeps them forever.
	RetentionDays int `yaml:"retention_days"`
}

// DefaultConfig returns a configuration that prunes runs older than 90 days
// every night at 3 AM and schedules no runs.
func DefaultConfig() *Config {
	return &Config{
		PruneSchedule: "0 3 * * *",
		RetentionDays: 90,
	}
}

// Validate checks both cron expressions.
func (c *Config) Validate() error {
	for name, spec := range map[string]string{"run": c.RunSchedule, "prune": c.PruneSchedule} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid %s schedule %q: %w", name, spec, err)
		}
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("retention_days must be >= 0, got %d", c.RetentionDays)
	}
	return nil
}

// Scheduler triggers runs and pruning on cron schedules.
type Scheduler struct {
	config   *Config
	run      RunFunc
	pruner   *Pruner
	cron     *cron.Cron
	logger   *slog.Logger
	recorder Recorder

	mu      sync.Mutex
	running bool
	runID   cron.EntryID

	runs     atomic.Int64
	failures atomic.Int64
}

// NewScheduler creates a scheduler. run or pruner may be nil when the
// matching schedule is empty.
func NewScheduler(config *Config, run RunFunc, pruner *Pruner, logger *slog.Logger) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default().With("component", "schedule")
	}

	cl := cronLogger{logger: logger}
	return &Scheduler{
		config: config,
		run:    run,
		pruner: pruner,
		logger: logger,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// SetRecorder sets the recorder of run and prune outcomes. Call it before
// Start.
func (s *Scheduler) SetRecorder(r Recorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = r
}

// Start registers the configured jobs and starts the cron loop. The
// scheduler stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if err := s.config.Validate(); err != nil {
		return err
	}

	scheduled := false
	if s.config.RunSchedule != "" && s.run != nil {
		id, err := s.cron.AddFunc(s.config.RunSchedule, func() { s.RunOnce(ctx) })
		if err != nil {
			return fmt.Errorf("failed to schedule runs: %w", err)
		}
		s.runID = id
		scheduled = true
	}
	if s.config.PruneSchedule != "" && s.pruner != nil {
		if _, err := s.cron.AddFunc(s.config.PruneSchedule, func() { s.prune(ctx) }); err != nil {
			return fmt.Errorf("failed to schedule pruning: %w", err)
		}
		scheduled = true
	}
	if !scheduled {
		return ErrNothingScheduled
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("scheduler started",
		"run_schedule", s.config.RunSchedule,
		"prune_schedule", s.config.PruneSchedule,
		"retention_days", s.config.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// RunOnce executes one run immediately, outside the cron loop.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if s.run == nil {
		return fmt.Errorf("no run function configured")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	n := s.runs.Add(1)
	start := time.Now()
	s.logger.Info("starting scheduled run", "sequence", n)

	err := s.run(ctx)
	if s.recorder != nil {
		s.recorder.RecordScheduledRun(err)
	}
	if err != nil {
		s.failures.Add(1)
		s.logger.Error("scheduled run failed", "sequence", n, "error", err)
		return err
	}

	s.logger.Info("scheduled run completed",
		"sequence", n,
		"duration", time.Since(start),
	)
	return nil
}

func (s *Scheduler) prune(ctx context.Context) {
	n, err := s.pruner.Prune(ctx)
	if err != nil {
		s.logger.Error("scheduled pruning failed", "error", err)
		return
	}
	if s.recorder != nil {
		s.recorder.RecordPruned(n)
	}
}

// Stop stops the scheduler and waits for any running jobs to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled run time, or nil when runs are not
// scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runID == 0 {
		return nil
	}
	next := s.cron.Entry(s.runID).Next
	if next.IsZero() {
		return nil
	}
	return &next
}

// Runs returns how many runs were started and how many failed.
func (s *Scheduler) Runs() (started, failed int64) {
	return s.runs.Load(), s.failures.Load()
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
