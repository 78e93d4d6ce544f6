package subagents

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/crewkit/crewkit/pkg/logger"
	llmtypes "github.com/crewkit/crewkit/pkg/types/llm"
	"github.com/crewkit/crewkit/pkg/usage"
)

// maxTurnsMessage is the captured error text for turn-limit exceedance
const maxTurnsMessage = "Max turns exceeded"

// UsageRecorder is the usage-tracking collaborator. Delegation reports
// through RecordSubagentUsage only; it never touches the aggregate
// directly.
type UsageRecorder interface {
	RecordSubagentUsage(name string, u llmtypes.Usage)
	Breakdown() map[string]usage.SubagentUsage
}

// DelegationOutcome is the result record every delegation produces.
// When Success is false, Error carries the message, Output is empty,
// and Cause holds the typed underlying error (a TimeoutError for
// turn-limit exceedance) for callers that match on error families.
type DelegationOutcome struct {
	Output   string
	Usage    llmtypes.Usage
	Duration time.Duration
	Subagent string
	Success  bool
	Error    string
	Cause    error
}

// Delegator owns the core delegate operation shared by the three
// calling conventions
type Delegator struct {
	spawner *Spawner
	tracker UsageRecorder
}

// NewDelegator creates a delegator using the given spawner and usage
// collaborator
func NewDelegator(spawner *Spawner, tracker UsageRecorder) *Delegator {
	return &Delegator{spawner: spawner, tracker: tracker}
}

// Delegate runs the core delegate operation to completion. Pre-execution
// failures (bad configuration, unknown tools, nesting violations,
// missing pre-loaded skills) return an error before any model call.
// Failures during the run are captured into the outcome, never raised.
func (d *Delegator) Delegate(ctx context.Context, desc *Descriptor, task, extraContext string) (outcome *DelegationOutcome, err error) {
	if err := d.spawner.ValidateDescriptor(desc); err != nil {
		return nil, err
	}

	child, err := d.spawner.Spawn(ctx, desc)
	if err != nil {
		return nil, err
	}

	message := task
	if extraContext != "" {
		message = fmt.Sprintf("%s\n\n<context>\n%s\n</context>", task, extraContext)
	}

	start := time.Now()
	outcome = &DelegationOutcome{Subagent: desc.Name}

	defer func() {
		// a panicking thread must still yield an inspectable outcome
		if r := recover(); r != nil {
			outcome.Success = false
			outcome.Output = ""
			outcome.Error = fmt.Sprintf("delegation panicked: %v", r)
			outcome.Cause = errors.Errorf("delegation panicked: %v", r)
			outcome.Duration = time.Since(start)
			err = nil
		}
		d.record(ctx, outcome)
	}()

	output, used, runErr := child.Run(ctx, message)
	outcome.Duration = time.Since(start)
	outcome.Usage = used

	if runErr != nil {
		outcome.Success = false
		outcome.Output = ""
		if errors.Is(runErr, llmtypes.ErrMaxTurnsExceeded) {
			outcome.Error = maxTurnsMessage
			outcome.Cause = &TimeoutError{Subagent: desc.Name, MaxTurns: child.Config.MaxTurns}
		} else {
			outcome.Error = runErr.Error()
			outcome.Cause = runErr
		}
		return outcome, nil
	}

	outcome.Success = true
	outcome.Output = output
	return outcome, nil
}

// record reports the outcome's usage to the tracking collaborator.
// Called exactly once per delegation regardless of how the result is
// later consumed.
func (d *Delegator) record(ctx context.Context, outcome *DelegationOutcome) {
	if d.tracker == nil || outcome == nil {
		return
	}
	d.tracker.RecordSubagentUsage(outcome.Subagent, outcome.Usage)
	usage.LogDelegationUsage(ctx, outcome.Subagent, outcome.Usage, outcome.Duration.Milliseconds())
}

// DelegateSync is the blocking convenience entry point for call sites
// that are not already running inside a concurrent workflow
func (d *Delegator) DelegateSync(desc *Descriptor, task, extraContext string) (*DelegationOutcome, error) {
	return d.Delegate(context.Background(), desc, task, extraContext)
}

// DelegateAsync starts the core operation in the background and
// immediately returns a handle. Spawn-time failures still surface
// synchronously so the caller can handle them before any model call.
func (d *Delegator) DelegateAsync(ctx context.Context, desc *Descriptor, task, extraContext string) (*DelegationHandle, error) {
	if err := d.spawner.ValidateDescriptor(desc); err != nil {
		return nil, err
	}
	if d.spawner.host.IsSubagent() {
		return nil, &NestingError{Name: desc.Name, Parent: d.spawner.host.Name()}
	}

	runCtx, cancel := context.WithCancel(ctx)
	handle := newDelegationHandle(desc.Name, task, cancel)

	go func() {
		defer handle.complete()
		// release the child context once the run is over; Cancel stays
		// a no-op after completion and double-cancel is harmless
		defer cancel()
		outcome, err := d.Delegate(runCtx, desc, task, extraContext)
		if err != nil {
			// pre-execution failure after the handle was issued
			outcome = &DelegationOutcome{
				Subagent: desc.Name,
				Success:  false,
				Error:    err.Error(),
				Cause:    err,
			}
		}
		handle.outcome = outcome
		logger.G(runCtx).WithFields(map[string]interface{}{
			"subagent":   desc.Name,
			"delegation": handle.ID,
			"success":    outcome.Success,
		}).Debug("Background delegation finished")
	}()

	return handle, nil
}
