package subagents

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrSubagent is the catch-all root of the subagent error family.
// Callers can match the whole family with errors.Is(err, ErrSubagent).
var ErrSubagent = errors.New("subagent error")

// ConfigError signals an unrecoverable setup mistake. It is the only
// error class that escapes a delegation once spawning has succeeded.
type ConfigError struct {
	Name   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid subagent configuration '%s': %s", e.Name, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrSubagent }

// NotFoundError indicates the named subagent is not registered
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("subagent '%s' not found", e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrSubagent }

// NestingError indicates a subagent attempted to spawn another subagent
type NestingError struct {
	Name   string // the subagent that was about to be spawned
	Parent string // the spawned agent that attempted it
}

func (e *NestingError) Error() string {
	return fmt.Sprintf("subagent '%s' cannot spawn subagent '%s': nested subagents are not permitted", e.Parent, e.Name)
}

func (e *NestingError) Unwrap() error { return ErrSubagent }

// DelegationError indicates the handoff to a subagent failed before the
// run could produce an outcome
type DelegationError struct {
	Subagent string
	Task     string
	Cause    error
}

func (e *DelegationError) Error() string {
	return fmt.Sprintf("failed to delegate task to subagent '%s': %v", e.Subagent, e.Cause)
}

func (e *DelegationError) Unwrap() error { return ErrSubagent }

// TimeoutError indicates a run exceeded its turn ceiling
type TimeoutError struct {
	Subagent string
	MaxTurns int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("subagent '%s' exceeded its maximum of %d turns", e.Subagent, e.MaxTurns)
}

func (e *TimeoutError) Unwrap() error { return ErrSubagent }
