// Package scheduler runs the engine's background jobs. Its main tenant is
// the course-totals sync job, which periodically reconciles stored progress
// records against current catalog totals.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrNilJob         = errors.New("scheduler: job is nil")
	ErrNilSchedule    = errors.New("scheduler: schedule is nil")
	ErrDuplicateJob   = errors.New("scheduler: job already registered")
	ErrAlreadyRunning = errors.New("scheduler: already running")
	ErrNotRunning     = errors.New("scheduler: not running")
)

// Job is a unit of background work.
type Job interface {
	// Name uniquely identifies the job within a scheduler.
	Name() string

	// Description is a one-line summary for logs and status output.
	Description() string

	// Run executes the job. The context is cancelled on scheduler stop.
	Run(ctx context.Context) error
}

// JobStatus is a point-in-time view of one registered job.
type JobStatus struct {
	Name        string
	Description string
	Schedule    string
	NextRun     time.Time
	LastRun     time.Time
	LastError   error
	Runs        int64
	Failures    int64
}

// entry pairs a job with its schedule and run counters.
type entry struct {
	job      Job
	schedule Schedule
	next     time.Time
	last     time.Time
	lastErr  error
	runs     int64
	failures int64
}

// Config configures a Scheduler.
type Config struct {
	// Logger for job lifecycle logging.
	Logger *slog.Logger

	// Timezone for schedule evaluation (default UTC).
	Timezone *time.Location

	// Tick is the due-check cadence (default one second). Tests shorten it.
	Tick time.Duration
}

// Scheduler checks registered jobs on a fixed tick and runs each one in its
// own goroutine when its schedule comes due. Registration order is preserved
// in status output.
type Scheduler struct {
	logger *slog.Logger
	loc    *time.Location
	tick   time.Duration

	mu      sync.Mutex
	entries []*entry
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a stopped scheduler.
func New(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	return &Scheduler{
		logger: cfg.Logger,
		loc:    cfg.Timezone,
		tick:   cfg.Tick,
	}
}

// Register adds a job. Job names must be unique.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrNilSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.job.Name() == job.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name())
		}
	}

	e := &entry{
		job:      job,
		schedule: schedule,
		next:     schedule.Next(time.Now().In(s.loc)),
	}
	s.entries = append(s.entries, e)

	s.logger.Info("job registered",
		"job", job.Name(),
		"schedule", schedule.String(),
		"next_run", e.next.Format(time.RFC3339),
	)
	return nil
}

// Start launches the tick loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop()

	s.logger.Info("scheduler started", "jobs", len(s.entries))
	return nil
}

// Stop cancels the loop and waits for in-flight jobs to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

// IsRunning reports whether the tick loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Jobs returns the status of every registered job in registration order.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, JobStatus{
			Name:        e.job.Name(),
			Description: e.job.Description(),
			Schedule:    e.schedule.String(),
			NextRun:     e.next,
			LastRun:     e.last,
			LastError:   e.lastErr,
			Runs:        e.runs,
			Failures:    e.failures,
		})
	}
	return out
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.dispatch(now.In(s.loc))
		}
	}
}

// dispatch advances due entries to their next scheduled time and starts a
// goroutine per due job. Advancing before running keeps a slow job from
// being started again on the following tick.
func (s *Scheduler) dispatch(now time.Time) {
	s.mu.Lock()
	var due []*entry
	for _, e := range s.entries {
		if !e.next.IsZero() && !now.Before(e.next) {
			e.next = e.schedule.Next(now)
			e.last = now
			due = append(due, e)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		s.wg.Add(1)
		go s.execute(e)
	}
}

func (s *Scheduler) execute(e *entry) {
	defer s.wg.Done()

	name := e.job.Name()
	started := time.Now()
	err := e.job.Run(s.ctx)
	elapsed := time.Since(started)

	s.mu.Lock()
	e.runs++
	e.lastErr = err
	if err != nil {
		e.failures++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("job failed", "job", name, "duration", elapsed.String(), "error", err)
		return
	}
	s.logger.Info("job completed", "job", name, "duration", elapsed.String())
}
