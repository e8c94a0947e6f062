package generation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uniedit/videogen/internal/module/kieai"
	"github.com/uniedit/videogen/internal/module/provider"
	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

// Run is one in-process execution of a variant. All fields are guarded by mu.
type Run struct {
	mu     sync.RWMutex
	status Status
	// saveMu orders snapshots with their writes so a store never sees an older state last.
	saveMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	now    func() time.Time
}

func newRun(variant provider.Variant, now func() time.Time) *Run {
	t := now()
	return &Run{
		status: Status{
			RunID:     uuid.NewString(),
			Variant:   variant.Name,
			Family:    variant.Family,
			State:     StateIdle,
			CreatedAt: t,
			UpdatedAt: t,
		},
		done: make(chan struct{}),
		now:  now,
	}
}

// ID returns the run id.
func (r *Run) ID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status.RunID
}

// Status returns a snapshot.
func (r *Run) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.status
	if s.Result != nil {
		res := *s.Result
		s.Result = &res
	}
	if s.Error != nil {
		e := *s.Error
		s.Error = &e
	}
	return s
}

// Done is closed once the run is terminal.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Cancel requests cancellation. It is a no-op once the run has finished.
func (r *Run) Cancel() {
	r.mu.RLock()
	cancel := r.cancel
	r.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Run) bind(cancel context.CancelFunc) {
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
}

// advance moves the run to next. Terminal states never change.
func (r *Run) advance(next State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.advanceLocked(next)
}

func (r *Run) advanceLocked(next State) error {
	cur := r.status.State
	if !cur.CanTransition(next) {
		return apperrors.Internal(fmt.Sprintf("run %s: illegal transition %s -> %s", r.status.RunID, cur, next), nil)
	}
	r.status.State = next
	r.status.UpdatedAt = r.now()
	if next.IsTerminal() {
		t := r.status.UpdatedAt
		r.status.FinishedAt = &t
		r.status.Message = ""
		close(r.done)
	}
	return nil
}

func (r *Run) setTaskID(id string) {
	r.mu.Lock()
	r.status.TaskID = id
	r.status.UpdatedAt = r.now()
	r.mu.Unlock()
}

// setMessage records the loading message while the run is in flight.
func (r *Run) setMessage(msg string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.State.IsTerminal() {
		return false
	}
	r.status.Message = msg
	return true
}

func (r *Run) succeed(res kieai.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.advanceLocked(StateSucceeded); err != nil {
		return err
	}
	r.status.Result = &res
	return nil
}

// finish records err as the terminal outcome, failed or cancelled.
func (r *Run) finish(state State, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.advanceLocked(state); err != nil {
		return err
	}
	r.status.Error = &RunError{Code: apperrors.CodeOf(err), Message: err.Error()}
	return nil
}
