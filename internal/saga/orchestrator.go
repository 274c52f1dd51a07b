package saga

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yourorg/commerce-orchestrator/internal/faults"
)

// RollbackOutcome records one compensation attempt during unwind.
type RollbackOutcome struct {
	StepName string
	Err      error // nil when the compensating call succeeded
}

// Result is the terminal outcome of a saga run. A saga either fully commits
// or reports the original execute failure with best-effort compensation
// already attempted; there is no partial-commit state.
type Result struct {
	SagaID     string
	Committed  bool
	FailedStep string
	Err        error // original execute failure, never a rollback error
	Rollbacks  []RollbackOutcome
}

// Orchestrator executes ordered step lists sequentially and compensates in
// reverse order on failure. It holds no per-purchase state; independent
// purchases run concurrently with their own step instances.
type Orchestrator struct{}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator() *Orchestrator {
	return &Orchestrator{}
}

// Run executes the steps in order, stopping at the first failure. When step i
// fails, steps i-1..0 are offered a rollback in strictly descending order.
// Non-fatal rollback errors are recorded in the result and never mask the
// original failure; fatal errors abort the unwind and propagate.
func (o *Orchestrator) Run(ctx context.Context, steps []Step) (Result, error) {
	tracer := otel.Tracer("saga")
	ctx, span := tracer.Start(ctx, "Saga.Run")
	defer span.End()

	result := Result{SagaID: uuid.NewString()}
	span.SetAttributes(attribute.String("saga.id", result.SagaID))

	if len(steps) == 0 {
		err := fmt.Errorf("saga: step list cannot be empty")
		span.SetStatus(codes.Error, err.Error())
		result.Err = err
		return result, err
	}

	start := time.Now()
	defer func() { sagaDurationSeconds.Observe(time.Since(start).Seconds()) }()

	for i, step := range steps {
		stepCtx, stepSpan := tracer.Start(ctx, "Saga.Execute."+step.Name())
		execErr := step.Execute(stepCtx)
		if execErr == nil {
			stepSpan.End()
			continue
		}
		stepSpan.SetStatus(codes.Error, execErr.Error())
		stepSpan.End()

		log.Printf("saga %s: step %q failed: %v; rolling back %d completed step(s)",
			result.SagaID, step.Name(), execErr, i)

		result.FailedStep = step.Name()
		result.Err = execErr

		if rbErr := o.unwind(ctx, steps[:i], &result); rbErr != nil {
			// Only fatal classes reach here; they outrank best-effort cleanup.
			span.SetStatus(codes.Error, rbErr.Error())
			return result, rbErr
		}

		sagasRolledBackTotal.Inc()
		span.SetStatus(codes.Error, execErr.Error())
		return result, execErr
	}

	result.Committed = true
	sagasCommittedTotal.Inc()
	return result, nil
}

// unwind rolls back completed steps in reverse order. Each step is offered a
// rollback even when an earlier one in the sequence failed.
func (o *Orchestrator) unwind(ctx context.Context, completed []Step, result *Result) error {
	tracer := otel.Tracer("saga")
	for j := len(completed) - 1; j >= 0; j-- {
		step := completed[j]
		rbCtx, rbSpan := tracer.Start(ctx, "Saga.Rollback."+step.Name())
		rollbackAttemptsTotal.Inc()
		err := step.Rollback(rbCtx)
		if err != nil {
			rollbackFailuresTotal.Inc()
			rbSpan.SetStatus(codes.Error, err.Error())
			rbSpan.End()
			if faults.IsFatal(err) {
				return err
			}
			log.Printf("saga %s: rollback of step %q failed: %v", result.SagaID, step.Name(), err)
			result.Rollbacks = append(result.Rollbacks, RollbackOutcome{StepName: step.Name(), Err: err})
			continue
		}
		rbSpan.End()
		result.Rollbacks = append(result.Rollbacks, RollbackOutcome{StepName: step.Name()})
	}
	return nil
}
