// Package errs defines the error taxonomy shared by the theory, dataops and
// cluster packages. Every public entry point classifies its failures into one
// of four sentinel categories so callers can branch with errors.Is without
// parsing messages.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is() usage.
var (
	// ErrDomain marks a numeric argument outside its physically valid range
	// (negative mass, radius or redshift, non-positive concentration).
	ErrDomain = errors.New("argument outside valid domain")

	// ErrConfiguration marks an unsupported enum or enum combination
	// (profile family, mass definition, error model, binning method,
	// z_src_info vs approx pairing).
	ErrConfiguration = errors.New("unsupported configuration")

	// ErrPrecondition marks missing required upstream data (cosmology not
	// set, catalog column absent, redshift needed but not provided).
	ErrPrecondition = errors.New("missing precondition")

	// ErrCapability marks an operation the active numerical backend cannot
	// perform (two-halo term without a power spectrum, Einasto slope on a
	// non-Einasto profile).
	ErrCapability = errors.New("operation not supported by backend")
)

// DomainError wraps ErrDomain with the offending argument.
type DomainError struct {
	Arg    string
	Value  float64
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("argument %s=%g outside valid domain: %s", e.Arg, e.Value, e.Reason)
}

func (e *DomainError) Is(target error) bool {
	return target == ErrDomain
}

func (e *DomainError) Unwrap() error {
	return ErrDomain
}

// ConfigurationError wraps ErrConfiguration with the rejected setting.
type ConfigurationError struct {
	Setting string
	Value   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unsupported %s: %q", e.Setting, e.Value)
	}
	return fmt.Sprintf("unsupported %s: %q (%s)", e.Setting, e.Value, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// PreconditionError wraps ErrPrecondition with the names of what is missing.
type PreconditionError struct {
	Missing []string
	Context string
}

func (e *PreconditionError) Error() string {
	msg := "missing required input"
	if len(e.Missing) > 0 {
		msg = fmt.Sprintf("missing required input: %s", strings.Join(e.Missing, ", "))
	}
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

func (e *PreconditionError) Unwrap() error {
	return ErrPrecondition
}

// CapabilityError wraps ErrCapability with the operation and backend names.
type CapabilityError struct {
	Op      string
	Backend string
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("operation %s not supported by backend %s", e.Op, e.Backend)
}

func (e *CapabilityError) Is(target error) bool {
	return target == ErrCapability
}

func (e *CapabilityError) Unwrap() error {
	return ErrCapability
}

// Domainf is shorthand for a *DomainError.
func Domainf(arg string, value float64, reason string) error {
	return &DomainError{Arg: arg, Value: value, Reason: reason}
}

// Configf is shorthand for a *ConfigurationError.
func Configf(setting, value, reason string) error {
	return &ConfigurationError{Setting: setting, Value: value, Reason: reason}
}

// Missingf is shorthand for a *PreconditionError.
func Missingf(context string, missing ...string) error {
	return &PreconditionError{Missing: missing, Context: context}
}
