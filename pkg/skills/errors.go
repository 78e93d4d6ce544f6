package skills

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// ErrSkill is the catch-all root of the skill error family. Every typed
// error below unwraps to it, so callers can match the whole family with
// errors.Is(err, ErrSkill).
var ErrSkill = errors.New("skill error")

// NotFoundError indicates the named skill is not registered
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("skill '%s' not found", e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrSkill }

// ParseError indicates a malformed definition header
type ParseError struct {
	Path  string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse skill definition '%s': %v", e.Path, e.Cause)
}

func (e *ParseError) Unwrap() error { return ErrSkill }

// ValidationError indicates a required field is missing or malformed
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid skill definition '%s': %s", e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrSkill }

// LoadError indicates a filesystem read failure. NotFound and
// PermissionDenied distinguish the two common causes.
type LoadError struct {
	Path  string
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load skill file '%s': %v", e.Path, e.Cause)
}

func (e *LoadError) Unwrap() error { return ErrSkill }

// NotFound reports whether the underlying failure was a missing file
func (e *LoadError) NotFound() bool { return os.IsNotExist(e.Cause) }

// PermissionDenied reports whether the underlying failure was a permission error
func (e *LoadError) PermissionDenied() bool { return os.IsPermission(e.Cause) }

// ConflictError indicates a duplicate registration
type ConflictError struct {
	Name string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("skill '%s' is already registered", e.Name)
}

func (e *ConflictError) Unwrap() error { return ErrSkill }

// InvocationError indicates an activation was denied: permission, trust,
// or a circular fork reference. Source names who asked.
type InvocationError struct {
	Name   string
	Source InvocationSource
	Reason string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("cannot invoke skill '%s' from source '%s': %s", e.Name, e.Source, e.Reason)
}

func (e *InvocationError) Unwrap() error { return ErrSkill }
