// Package idperr defines the error taxonomy used across idpgo.
//
// The original IDP system raises C++ exceptions from deep inside the
// grounder and catches them at the inference boundary. Design note §9
// asks for that to become an explicit error value instead: every
// grounder, propagator and generator returns a plain Go error, and the
// handful of recognised failure modes are sentinels that callers can
// test with errors.Is/errors.As.
package idperr

import (
	"errors"
	"fmt"
)

// Sentinel errors corresponding to the taxonomy in spec §7.
var (
	// ErrUnsat is raised when grounding discovers the theory is
	// unsatisfiable against the current structure. The caller replaces
	// the ground theory with the single empty clause and returns.
	ErrUnsat = errors.New("idperr: unsatisfiable during grounding")

	// ErrTerminated is returned by runctl.Token.Check once the
	// watchdog has set the sticky termination flag.
	ErrTerminated = errors.New("idperr: inference terminated")

	// ErrNotYetImplemented marks a construct the grounder core
	// intentionally does not support (aggregates nested inside terms,
	// equivalences inside BDD construction).
	ErrNotYetImplemented = errors.New("idperr: construct not supported")

	// ErrConfig marks an inconsistent option combination or an
	// unsupported target, detected before any work starts.
	ErrConfig = errors.New("idperr: invalid configuration")

	// ErrInternal marks a violated invariant (BDD ordering,
	// context-stack underflow) that should never happen given correct
	// callers; it always wraps more specific context.
	ErrInternal = errors.New("idperr: internal invariant violation")

	// ErrSolver wraps a failure reported by the external solver
	// collaborator.
	ErrSolver = errors.New("idperr: solver error")
)

// Wrap attaches msg to err while preserving errors.Is/As matching
// against the sentinels above.
func Wrap(sentinel error, msg string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(msg, args...), sentinel)
}

// Internal builds an ErrInternal carrying a formatted invariant
// description, the idiomatic replacement for an assertion failure.
func Internal(format string, args ...any) error {
	return Wrap(ErrInternal, format, args...)
}

// NotYetImplemented builds an ErrNotYetImplemented for a named construct.
func NotYetImplemented(construct string) error {
	return fmt.Errorf("%s: %w", construct, ErrNotYetImplemented)
}

// IsUnsat reports whether err (or any error it wraps) is ErrUnsat.
func IsUnsat(err error) bool { return errors.Is(err, ErrUnsat) }

// IsTerminated reports whether err (or any error it wraps) is ErrTerminated.
func IsTerminated(err error) bool { return errors.Is(err, ErrTerminated) }
