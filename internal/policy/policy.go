// Package policy evaluates configurable failure-handling rules over saga
// outcomes: whether the caller may retry the whole purchase and whether an
// operator should be alerted.
package policy

import (
	"fmt"

	"github.com/Knetic/govaluate"
)

// Effect is what a matching rule contributes to the decision.
type Effect string

const (
	EffectCallerMayRetry   Effect = "caller_may_retry"
	EffectEscalateOperator Effect = "escalate_operator"
)

// RuleConfig is one rule: a govaluate expression over outcome parameters and
// the effect applied when it evaluates to true.
//
// Available parameters: fault_kind (string), step_name (string),
// rollback_failures (number).
type RuleConfig struct {
	Name       string
	Expression string
	Effect     Effect
}

// Decision is the aggregate outcome of evaluating all rules.
type Decision struct {
	CallerMayRetry   bool     `json:"callerMayRetry"`
	EscalateOperator bool     `json:"escalateOperator"`
	Reasons          []string `json:"reasons,omitempty"`
}

type compiledRule struct {
	cfg  RuleConfig
	expr *govaluate.EvaluableExpression
}

// Enforcer holds compiled rules. Rules are compiled once at construction;
// evaluation is read-only and safe for concurrent use.
type Enforcer struct {
	rules []compiledRule
}

// NewEnforcer compiles the rule set.
func NewEnforcer(rules []RuleConfig) (*Enforcer, error) {
	e := &Enforcer{}
	for _, rc := range rules {
		expr, err := govaluate.NewEvaluableExpression(rc.Expression)
		if err != nil {
			return nil, fmt.Errorf("policy: compiling rule %q: %w", rc.Name, err)
		}
		e.rules = append(e.rules, compiledRule{cfg: rc, expr: expr})
	}
	return e, nil
}

// DefaultRules is the shipped rule set: transient backend failures are
// retryable by the caller; credential problems and incomplete rollbacks page
// an operator.
func DefaultRules() []RuleConfig {
	return []RuleConfig{
		{
			Name:       "RetryTransientBackend",
			Expression: "fault_kind == 'DownstreamServiceError'",
			Effect:     EffectCallerMayRetry,
		},
		{
			Name:       "EscalateIdentityFailures",
			Expression: "fault_kind =~ 'PaymentGatewayIdentityFailure.*'",
			Effect:     EffectEscalateOperator,
		},
		{
			Name:       "EscalateIncompleteRollback",
			Expression: "rollback_failures > 0",
			Effect:     EffectEscalateOperator,
		},
	}
}

// Evaluate runs every rule against the parameters and merges the effects of
// the rules that matched.
func (e *Enforcer) Evaluate(params map[string]interface{}) (Decision, error) {
	var d Decision
	for _, r := range e.rules {
		out, err := r.expr.Evaluate(params)
		if err != nil {
			return Decision{}, fmt.Errorf("policy: evaluating rule %q: %w", r.cfg.Name, err)
		}
		matched, ok := out.(bool)
		if !ok {
			return Decision{}, fmt.Errorf("policy: rule %q did not evaluate to a boolean", r.cfg.Name)
		}
		if !matched {
			continue
		}
		switch r.cfg.Effect {
		case EffectCallerMayRetry:
			d.CallerMayRetry = true
		case EffectEscalateOperator:
			d.EscalateOperator = true
		}
		d.Reasons = append(d.Reasons, r.cfg.Name)
	}
	return d, nil
}
