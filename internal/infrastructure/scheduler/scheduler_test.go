package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	err  error
	runs atomic.Int64
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "counts its runs" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func quietScheduler(tick time.Duration) *Scheduler {
	return New(Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tick:   tick,
	})
}

func TestScheduler_Register(t *testing.T) {
	s := quietScheduler(0)

	require.NoError(t, s.Register(&countingJob{name: "sync"}, Every(time.Hour)))

	err := s.Register(&countingJob{name: "sync"}, Every(time.Minute))
	assert.ErrorIs(t, err, ErrDuplicateJob)

	assert.ErrorIs(t, s.Register(nil, Every(time.Hour)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "other"}, nil), ErrNilSchedule)
}

func TestScheduler_Lifecycle(t *testing.T) {
	s := quietScheduler(0)
	ctx := context.Background()

	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrNotRunning)

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(ctx), ErrAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrNotRunning)
}

func TestScheduler_RunsDueJobs(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-dependent")
	}

	s := quietScheduler(5 * time.Millisecond)
	job := &countingJob{name: "sync"}
	require.NoError(t, s.Register(job, Every(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop() }()

	deadline := time.After(3 * time.Second)
	for job.runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("job ran %d times, want at least 2", job.runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestScheduler_StopWaitsForJobs(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-dependent")
	}

	s := quietScheduler(5 * time.Millisecond)

	var finished atomic.Bool
	started := make(chan struct{}, 1)
	job := &hookableJob{name: "slow", fn: func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
		return nil
	}}
	require.NoError(t, s.Register(job, Every(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	require.NoError(t, s.Stop())
	assert.True(t, finished.Load(), "Stop returned before the running job finished")
}

func TestScheduler_JobStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-dependent")
	}

	s := quietScheduler(5 * time.Millisecond)
	boom := errors.New("catalog down")
	good := &countingJob{name: "sync"}
	bad := &countingJob{name: "cleanup", err: boom}

	require.NoError(t, s.Register(good, Every(10*time.Millisecond)))
	require.NoError(t, s.Register(bad, Every(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	deadline := time.After(3 * time.Second)
	for good.runs.Load() < 1 || bad.runs.Load() < 1 {
		select {
		case <-deadline:
			t.Fatal("jobs did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
	require.NoError(t, s.Stop())

	jobs := s.Jobs()
	require.Len(t, jobs, 2)

	// Registration order is preserved.
	assert.Equal(t, "sync", jobs[0].Name)
	assert.Equal(t, "cleanup", jobs[1].Name)
	assert.Equal(t, "@every 10ms", jobs[0].Schedule)

	assert.GreaterOrEqual(t, jobs[0].Runs, int64(1))
	assert.Zero(t, jobs[0].Failures)
	assert.NoError(t, jobs[0].LastError)

	assert.GreaterOrEqual(t, jobs[1].Failures, int64(1))
	assert.ErrorIs(t, jobs[1].LastError, boom)
	assert.False(t, jobs[1].LastRun.IsZero())
}

type hookableJob struct {
	name string
	fn   func(ctx context.Context) error
}

func (j *hookableJob) Name() string                  { return j.name }
func (j *hookableJob) Description() string           { return "test job" }
func (j *hookableJob) Run(ctx context.Context) error { return j.fn(ctx) }
