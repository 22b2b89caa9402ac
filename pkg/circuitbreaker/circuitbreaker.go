// Package circuitbreaker guards outbound calls against a failing
// collaborator. After a run of consecutive failures the breaker opens and
// rejects calls outright; once the hold expires it admits a limited number
// of probes and closes again when enough of them succeed.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the breaker's admission mode.
type State int

const (
	// StateClosed admits every call.
	StateClosed State = iota
	// StateOpen rejects every call until the hold expires.
	StateOpen
	// StateHalfOpen admits a bounded number of probe calls.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen is returned while the breaker rejects calls.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTooManyRequests is returned when the half-open probe budget is
	// already taken.
	ErrTooManyRequests = errors.New("half-open probe limit reached")
)

// Config tunes a Breaker.
type Config struct {
	// Name identifies the breaker in state-change notifications.
	Name string

	// FailureThreshold is the consecutive-failure run that opens the
	// breaker (default 5).
	FailureThreshold int

	// SuccessThreshold is the half-open success run that closes it again
	// (default 2).
	SuccessThreshold int

	// Timeout is the open-state hold before probing resumes (default 30s).
	Timeout time.Duration

	// MaxProbes bounds the calls admitted while half-open (default 1).
	MaxProbes int

	// IsFailure decides whether an error counts against the breaker.
	// Nil counts every non-nil error.
	IsFailure func(error) bool

	// OnStateChange observes transitions. It runs with the breaker lock
	// held and must not call back into the breaker.
	OnStateChange func(name string, from, to State)
}

// Breaker tracks failure runs for one collaborator.
type Breaker struct {
	cfg Config

	mu        sync.Mutex
	state     State
	failures  int // consecutive failures while closed
	successes int // consecutive successes while half-open
	probes    int // calls admitted during the current half-open phase
	openedAt  time.Time
}

// New builds a closed Breaker, applying defaults for unset fields.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxProbes <= 0 {
		cfg.MaxProbes = 1
	}
	return &Breaker{cfg: cfg}
}

// Execute runs fn if the breaker admits the call and feeds the outcome back
// into the failure tracking. Rejections return ErrCircuitOpen or
// ErrTooManyRequests without invoking fn.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	b.observe(err)
	return err
}

// State returns the current admission mode.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Name returns the configured breaker name.
func (b *Breaker) Name() string {
	return b.cfg.Name
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(b.openedAt) < b.cfg.Timeout {
			return ErrCircuitOpen
		}
		b.transition(StateHalfOpen)
		b.probes = 1
		return nil
	default:
		if b.probes >= b.cfg.MaxProbes {
			return ErrTooManyRequests
		}
		b.probes++
		return nil
	}
}

func (b *Breaker) observe(err error) {
	failed := err != nil
	if failed && b.cfg.IsFailure != nil {
		failed = b.cfg.IsFailure(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if failed {
		b.onFailure()
	} else {
		b.onSuccess()
	}
}

func (b *Breaker) onSuccess() {
	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.transition(StateClosed)
		}
	}
}

func (b *Breaker) onFailure() {
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.openedAt = time.Now()
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		// One failed probe reopens the breaker for a full hold.
		b.openedAt = time.Now()
		b.transition(StateOpen)
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.failures, b.successes, b.probes = 0, 0, 0

	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, from, to)
	}
}

// CatalogAPIBreaker is the policy for the course catalog API. Enrollment
// and withdrawal both depend on catalog reads, so it opens early and
// recovers cautiously.
func CatalogAPIBreaker(onStateChange func(name string, from, to State)) *Breaker {
	return New(Config{
		Name:             "catalog-api",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          60 * time.Second,
		MaxProbes:        1,
		OnStateChange:    onStateChange,
	})
}
