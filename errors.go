package autotune

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConflictingMetaParametersError is raised when a meta-parameter is supplied
// both as a call kwarg and by the candidate Config being benchmarked.
type ConflictingMetaParametersError struct {
	Names []string
}

func (e *ConflictingMetaParametersError) Error() string {
	return fmt.Sprintf("conflicting meta-parameters: %v; make sure you don't re-define auto-tuned symbols", e.Names)
}

// OutOfResourcesError signals that a candidate configuration failed to
// launch because it requested more device resources than are available.
// It is a soft failure: policies catch it and either mark the config as
// permanently failed for the current key or retry with another candidate.
type OutOfResourcesError struct {
	Config *Config
	Cause  error
}

func (e *OutOfResourcesError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("out of resources for config %s: %v", e.Config, e.Cause)
	}
	return fmt.Sprintf("out of resources for config %s", e.Config)
}

func (e *OutOfResourcesError) Unwrap() error { return e.Cause }

// CompileTimeAssertionFailureError signals a static assertion raised by the
// kernel compiler for a given candidate. Exhaustive treats it as a soft
// failure (infinite timing); the other policies let it propagate.
type CompileTimeAssertionFailureError struct {
	Config *Config
	Cause  error
}

func (e *CompileTimeAssertionFailureError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("compile-time assertion failure for config %s: %v", e.Config, e.Cause)
	}
	return fmt.Sprintf("compile-time assertion failure for config %s", e.Config)
}

func (e *CompileTimeAssertionFailureError) Unwrap() error { return e.Cause }

// ErrUnknownPolicy is returned by the dispatch facade when asked to bind a
// tunable to a policy name outside {default, stepwise, epsilon, confidence}.
var ErrUnknownPolicy = errors.New("autotune: unknown policy")

// ErrNoCandidates is returned when pruning eliminates every candidate
// before a policy can pick one to benchmark or commit to.
var ErrNoCandidates = errors.New("autotune: no candidate configs survived pruning")

// newUnknownPolicyError wraps ErrUnknownPolicy with the offending name so
// callers can log it without losing errors.Is(err, ErrUnknownPolicy).
func newUnknownPolicyError(name string) error {
	return errors.Wrapf(ErrUnknownPolicy, "policy %q", name)
}

// isSoftFailure reports whether err is one of the two failure kinds that the
// measurement harness and the exhaustive policy convert into an infinite
// timing rather than propagating.
func isSoftFailure(err error) bool {
	var oor *OutOfResourcesError
	var ctaf *CompileTimeAssertionFailureError
	return errors.As(err, &oor) || errors.As(err, &ctaf)
}

// isOutOfResources reports whether err (or a wrapped cause) is OutOfResources.
// Stepwise and Confidence use this to mark a candidate permanently failed for
// a key; Epsilon uses it to decide whether to loop and retry.
func isOutOfResources(err error) bool {
	var oor *OutOfResourcesError
	return errors.As(err, &oor)
}
