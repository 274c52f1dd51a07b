package commerce

import (
	"context"
	"log"

	"github.com/yourorg/commerce-orchestrator/internal/faults"
	"github.com/yourorg/commerce-orchestrator/internal/saga"
)

// AuthorizeStep finalizes the payer's consent into an authorization hold.
// Its compensation voids the hold.
type AuthorizeStep struct {
	gateway PaymentGateway
	auth    *PaymentAuthorization
	state   saga.StepState
}

// NewAuthorizeStep creates a step that authorizes the payment identified by
// auth and writes the authorization code back into it.
func NewAuthorizeStep(gateway PaymentGateway, auth *PaymentAuthorization) *AuthorizeStep {
	return &AuthorizeStep{gateway: gateway, auth: auth}
}

func (s *AuthorizeStep) Name() string { return "authorize-payment" }

func (s *AuthorizeStep) State() saga.StepState { return s.state }

// Authorization returns the payment authorization this step operates on.
func (s *AuthorizeStep) Authorization() *PaymentAuthorization { return s.auth }

func (s *AuthorizeStep) Execute(ctx context.Context) error {
	code, err := s.gateway.ExecutePayment(ctx, s.auth.PayerID, s.auth.PaymentID)
	if err != nil {
		return err
	}
	s.auth.AuthorizationCode = code
	s.state = saga.StateCommitted
	return nil
}

// Rollback voids the authorization hold. The step leaves the committed state
// even when the void call fails: the unvoided hold becomes an operator alert
// carried in the returned error, not a reason to block the rest of the
// unwind, and a repeated rollback will not re-trigger the failing void.
func (s *AuthorizeStep) Rollback(ctx context.Context) error {
	if s.state != saga.StateCommitted {
		return nil
	}
	code := s.auth.AuthorizationCode
	s.state = saga.StateCompensated
	s.auth.AuthorizationCode = ""

	if err := s.gateway.Void(ctx, code); err != nil {
		if faults.IsFatal(err) {
			return err
		}
		log.Printf("authorize-payment rollback: void failed for authorization %s: %v", code, err)
		return faults.Wrap(faults.KindOf(err), err, "void of authorization failed").
			WithDetail("authorizationCode", code)
	}
	return nil
}
