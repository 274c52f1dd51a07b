// Package saga runs an ordered list of transaction steps against external
// services that offer no shared transaction, compensating completed steps in
// reverse order when a later step fails.
package saga

import "context"

// StepState is the explicit lifecycle of a step's side effect.
type StepState int

const (
	// StateNotStarted means Execute has not succeeded yet; there is nothing
	// to undo.
	StateNotStarted StepState = iota
	// StateCommitted means Execute succeeded and the step holds a side
	// effect that a rollback must compensate.
	StateCommitted
	// StateCompensated means a rollback attempt has run. The compensating
	// call itself may have failed, but the step will not retry it.
	StateCompensated
)

func (s StepState) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateCommitted:
		return "committed"
	case StateCompensated:
		return "compensated"
	default:
		return "unknown"
	}
}

// Step is a unit of work with a forward action and a compensating action.
// A step instance is owned exclusively by one saga execution and is not
// reused across purchases.
//
// Execute performs the forward action and, on success, moves the step to
// StateCommitted. Rollback performs the compensating action only when the
// step is in StateCommitted and always leaves it in StateCompensated
// afterward, win or lose, so repeated rollback attempts never re-trigger a
// failing compensation. Rollback returns its failure for aggregation; the
// orchestrator records non-fatal rollback errors and propagates fatal ones.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Rollback(ctx context.Context) error
	State() StepState
}
