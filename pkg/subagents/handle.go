package subagents

import (
	"context"

	"github.com/google/uuid"
)

// DelegationHandle references an in-flight fire-and-forget delegation.
// Callers may poll completion, await the result, or cancel; cancellation
// is cooperative and a no-op once the run has finished.
type DelegationHandle struct {
	ID       string
	Subagent string
	Task     string

	done    chan struct{}
	cancel  context.CancelFunc
	outcome *DelegationOutcome // written before done is closed
}

func newDelegationHandle(subagent, task string, cancel context.CancelFunc) *DelegationHandle {
	return &DelegationHandle{
		ID:       uuid.NewString(),
		Subagent: subagent,
		Task:     task,
		done:     make(chan struct{}),
		cancel:   cancel,
	}
}

func (h *DelegationHandle) complete() {
	close(h.done)
}

// IsComplete reports, without blocking, whether the delegation finished
func (h *DelegationHandle) IsComplete() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Result blocks until the delegation finishes (or ctx is done) and
// returns its outcome. Calling Result repeatedly returns the same
// outcome; usage was recorded once by the background run, not here.
func (h *DelegationHandle) Result(ctx context.Context) (*DelegationOutcome, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return h.outcome, nil
	}
}

// Cancel requests cooperative cancellation of the background run. It is
// a no-op if the delegation has already completed.
func (h *DelegationHandle) Cancel() {
	if h.IsComplete() {
		return
	}
	h.cancel()
}
