package skills

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ValidationOutcome is the structured result of validating a definition
// file. It is always returned, never raised: every violation becomes an
// entry in Errors or Warnings.
type ValidationOutcome struct {
	Valid    bool       `yaml:"valid"`
	Errors   []string   `yaml:"errors,omitempty"`
	Warnings []string   `yaml:"warnings,omitempty"`
	Trust    TrustLevel `yaml:"trust"`
	Path     string     `yaml:"path"`
}

// Validator checks definition files and resolves trust levels. Trusted
// paths are doublestar patterns matched against the directory a custom
// skill was discovered from.
type Validator struct {
	trustedPaths []string
}

// NewValidator creates a validator with the given trusted custom path patterns
func NewValidator(trustedPaths ...string) *Validator {
	return &Validator{trustedPaths: trustedPaths}
}

// ResolveTrust maps a scope and source path to a trust level. Project
// and user scopes are trusted; custom scopes are untrusted unless the
// path matches a trusted pattern.
func (v *Validator) ResolveTrust(scope Scope, path string) TrustLevel {
	if scope != ScopeCustom {
		return scope.DefaultTrust()
	}

	clean := filepath.ToSlash(filepath.Clean(path))
	for _, pattern := range v.trustedPaths {
		if ok, err := doublestar.Match(filepath.ToSlash(pattern), clean); err == nil && ok {
			return TrustTrusted
		}
		// also accept a pattern that names the containing directory
		if ok, err := doublestar.Match(filepath.ToSlash(pattern)+"/**", clean); err == nil && ok {
			return TrustTrusted
		}
	}
	return TrustUntrusted
}

// Validate loads the definition at path and checks it against the
// frontmatter schema and the trust restrictions for the given scope
func (v *Validator) Validate(path string, scope Scope) *ValidationOutcome {
	outcome := &ValidationOutcome{Path: path}

	desc, err := LoadDescriptor(path)
	if err != nil {
		outcome.Trust = v.ResolveTrust(scope, path)
		outcome.Errors = append(outcome.Errors, err.Error())
		return outcome
	}

	desc.Scope = scope
	desc.Trust = v.ResolveTrust(scope, path)
	outcome.Trust = desc.Trust

	v.checkDescriptor(desc, outcome)
	outcome.Valid = len(outcome.Errors) == 0
	return outcome
}

// CheckDescriptor applies trust and consistency checks to an already
// loaded descriptor, appending violations to a fresh outcome
func (v *Validator) CheckDescriptor(desc *Descriptor) *ValidationOutcome {
	outcome := &ValidationOutcome{Path: desc.Path, Trust: desc.Trust}
	v.checkDescriptor(desc, outcome)
	outcome.Valid = len(outcome.Errors) == 0
	return outcome
}

func (v *Validator) checkDescriptor(desc *Descriptor, outcome *ValidationOutcome) {
	if desc.Mode == ModeFork {
		if !desc.Mode.AllowedForTrust(desc.Trust) {
			outcome.Errors = append(outcome.Errors,
				fmt.Sprintf("untrusted skill '%s' may not declare execution-mode 'fork'", desc.Name))
		}
		if desc.Agent == "" {
			outcome.Errors = append(outcome.Errors,
				fmt.Sprintf("skill '%s' declares execution-mode 'fork' but no target agent", desc.Name))
		}
	}

	if desc.Trust == TrustUntrusted && hasBroadToolAccess(desc.AllowedTools) {
		outcome.Errors = append(outcome.Errors,
			fmt.Sprintf("untrusted skill '%s' may not request broad tool access", desc.Name))
	}

	if desc.DisableModelInvocation && !desc.UserInvocable {
		outcome.Warnings = append(outcome.Warnings,
			fmt.Sprintf("skill '%s' is invocable by neither model nor user", desc.Name))
	}
}

// hasBroadToolAccess reports whether the allowlist contains wildcard
// entries that would grant more than explicitly named tools
func hasBroadToolAccess(tools []string) bool {
	for _, t := range tools {
		if t == "*" || strings.ContainsAny(t, "*?[") {
			return true
		}
	}
	return false
}
