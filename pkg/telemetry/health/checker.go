package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"valve-hq/valve/pkg/report"
	"valve-hq/valve/pkg/valve"
)

// CheckFunc performs a health check for a component. It returns nil if
// the component is healthy.
type CheckFunc func(ctx context.Context) error

// Check statuses.
const (
	StatusOK        = "ok"
	StatusUnhealthy = "unhealthy"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
)

// CheckResult is the result of a single health check.
type CheckResult struct {
	// Status is "ok" or "unhealthy".
	Status string `json:"status"`

	Message string `json:"message,omitempty"`

	// DurationMS is how long the check took in milliseconds.
	DurationMS float64 `json:"duration_ms,omitempty"`
}

// Status is the overall health of the process.
type Status struct {
	// Status is "ok" for liveness, and "ready" or "degraded" for
	// readiness.
	Status string `json:"status"`

	// Checks holds the component results of a readiness check.
	Checks map[string]CheckResult `json:"checks,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

var (
	// ErrNoRun is returned by a run age check before the first run.
	ErrNoRun = errors.New("no completed run")

	// ErrStaleRun is returned when the last completed run is too old.
	ErrStaleRun = errors.New("last completed run is too old")
)

// Checker runs the registered component checks.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc

	checkTimeout time.Duration
}

// New creates a checker. A zero timeout defaults to 5 seconds per check.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout == 0 {
		checkTimeout = 5 * time.Second
	}
	return &Checker{
		checks:       make(map[string]CheckFunc),
		checkTimeout: checkTimeout,
	}
}

// RegisterCheck registers check under name, replacing any previous one.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// CheckLiveness reports the process as alive.
func (c *Checker) CheckLiveness(ctx context.Context) Status {
	return Status{Status: StatusOK, Timestamp: time.Now()}
}

// CheckReadiness runs every registered check concurrently. The process is
// ready when all of them pass.
func (c *Checker) CheckReadiness(ctx context.Context) Status {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	var resultMu sync.Mutex
	var wg sync.WaitGroup
	for name, check := range checks {
		wg.Go(func() {
			result := c.runCheck(ctx, check)
			resultMu.Lock()
			results[name] = result
			resultMu.Unlock()
		})
	}
	wg.Wait()

	status := StatusReady
	for _, result := range results {
		if result.Status == StatusUnhealthy {
			status = StatusDegraded
		}
	}
	return Status{Status: status, Checks: results, Timestamp: time.Now()}
}

// runCheck executes a single check with the checker's timeout.
func (c *Checker) runCheck(ctx context.Context, check CheckFunc) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()
	errChan := make(chan error, 1)
	go func() {
		errChan <- check(checkCtx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return CheckResult{Status: StatusUnhealthy, Message: err.Error(), DurationMS: millis(start)}
		}
		return CheckResult{Status: StatusOK, DurationMS: millis(start)}
	case <-checkCtx.Done():
		return CheckResult{Status: StatusUnhealthy, Message: "health check timeout", DurationMS: millis(start)}
	}
}

func millis(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

// RunTracker remembers when the last run completed with a usable
// configuration. Runs rejected for configuration faults do not count.
type RunTracker struct {
	mu      sync.Mutex
	last    time.Time
	outcome string
	now     func() time.Time
}

var _ valve.Observer = (*RunTracker)(nil)

// NewRunTracker creates an empty tracker.
func NewRunTracker() *RunTracker {
	return &RunTracker{now: time.Now}
}

// ObserveTable implements valve.Observer.
func (t *RunTracker) ObserveTable(string, []report.Violation, time.Duration) {}

// ObserveRun implements valve.Observer.
func (t *RunTracker) ObserveRun(result *valve.Result) {
	if result.ConfigFailed {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = t.now()
	t.outcome = result.Outcome()
}

// Check returns a CheckFunc failing when no run has completed or the
// last one is older than maxAge. A zero maxAge only requires one run.
func (t *RunTracker) Check(maxAge time.Duration) CheckFunc {
	return func(ctx context.Context) error {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.last.IsZero() {
			return ErrNoRun
		}
		if age := t.now().Sub(t.last); maxAge > 0 && age > maxAge {
			return fmt.Errorf("%w: %s ago (%s)", ErrStaleRun, age.Round(time.Second), t.outcome)
		}
		return nil
	}
}
