package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quiz-agent/internal/application/port/input"
	"quiz-agent/internal/application/port/output"
	"quiz-agent/internal/domain/entity"

	"github.com/google/uuid"
)

var _ input.RunDispatcher = (*Dispatcher)(nil)

// Dispatcher starts each run on its own goroutine, detached from the
// caller's context. Runs cannot be cancelled once started; Wait only lets
// shutdown give in-flight runs a chance to finish.
type Dispatcher struct {
	solver input.QuizSolver
	logger output.LoggerPort
	newID  func() string

	wg     sync.WaitGroup
	mu     sync.Mutex
	active map[string]time.Time
}

func New(solver input.QuizSolver, logger output.LoggerPort) *Dispatcher {
	return &Dispatcher{
		solver: solver,
		logger: logger,
		newID:  uuid.NewString,
		active: make(map[string]time.Time),
	}
}

func (d *Dispatcher) Dispatch(session entity.Session) string {
	runID := d.newID()

	d.mu.Lock()
	d.active[runID] = time.Now()
	d.mu.Unlock()

	d.wg.Add(1)
	go d.run(runID, session)

	d.logger.Info("Run dispatched", "run_id", runID, "start_url", session.StartURL)
	return runID
}

func (d *Dispatcher) run(runID string, session entity.Session) {
	defer d.wg.Done()
	defer func() {
		d.mu.Lock()
		delete(d.active, runID)
		d.mu.Unlock()
	}()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Run panicked", "run_id", runID, "panic", fmt.Sprint(r))
		}
	}()

	res := d.solver.Solve(context.Background(), runID, session)
	if res != nil {
		d.logger.Info("Run finished",
			"run_id", runID,
			"state", res.State,
			"iterations", res.Iterations,
			"duration", res.Duration,
		)
	}
}

// Active reports the number of runs that have not finished yet.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.active)
}

func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%d runs still active: %w", d.Active(), ctx.Err())
	}
}
