package commerce

import (
	"context"
	"log"
	"time"

	"github.com/yourorg/commerce-orchestrator/internal/config"
	"github.com/yourorg/commerce-orchestrator/internal/faults"
	"github.com/yourorg/commerce-orchestrator/internal/policy"
	"github.com/yourorg/commerce-orchestrator/internal/reporting"
	"github.com/yourorg/commerce-orchestrator/internal/saga"
)

// PurchaseOutcome is the structured result returned to callers. A purchase
// either fully committed, or failed with the original fault and the
// best-effort compensation already attempted.
type PurchaseOutcome struct {
	SagaID        string                 `json:"sagaId"`
	Committed     bool                   `json:"committed"`
	Authorization *PaymentAuthorization  `json:"authorization,omitempty"`
	Order         *PlacedOrder           `json:"order,omitempty"`
	FaultKind     faults.Kind            `json:"faultKind,omitempty"`
	Detail        string                 `json:"detail,omitempty"`
	Rollbacks     []saga.RollbackOutcome `json:"-"`
	Decision      policy.Decision        `json:"decision"`
}

// PurchaseService builds and runs the purchase saga: authorize payment, then
// place the order, with reverse-order compensation on failure.
type PurchaseService struct {
	gateway      PaymentGateway
	orders       OrderClient
	branding     config.BrandingRepository
	orchestrator *saga.Orchestrator
	enforcer     *policy.Enforcer
	notifier     OperatorNotifier
	recorder     *reporting.Recorder
}

// NewPurchaseService wires the purchase flow. All collaborators are
// required.
func NewPurchaseService(
	gateway PaymentGateway,
	orders OrderClient,
	branding config.BrandingRepository,
	orchestrator *saga.Orchestrator,
	enforcer *policy.Enforcer,
	notifier OperatorNotifier,
	recorder *reporting.Recorder,
) *PurchaseService {
	if gateway == nil {
		panic("PaymentGateway cannot be nil")
	}
	if orders == nil {
		panic("OrderClient cannot be nil")
	}
	if branding == nil {
		panic("BrandingRepository cannot be nil")
	}
	if orchestrator == nil {
		panic("saga Orchestrator cannot be nil")
	}
	if enforcer == nil {
		panic("policy Enforcer cannot be nil")
	}
	if notifier == nil {
		panic("OperatorNotifier cannot be nil")
	}
	if recorder == nil {
		panic("reporting Recorder cannot be nil")
	}
	return &PurchaseService{
		gateway:      gateway,
		orders:       orders,
		branding:     branding,
		orchestrator: orchestrator,
		enforcer:     enforcer,
		notifier:     notifier,
		recorder:     recorder,
	}
}

// Checkout creates the provider-hosted checkout for the order and returns
// the URL the payer is redirected to. No money moves yet.
func (s *PurchaseService) Checkout(ctx context.Context, redirectURL string, order PurchaseOrder) (string, error) {
	if len(order.Subscriptions) == 0 {
		return "", faults.New(faults.InvalidInput, "purchase order has no line items")
	}
	return s.gateway.GenerateCheckoutURI(ctx, redirectURL, order)
}

// CompletePurchase resumes a purchase after the provider redirect: it
// reconstructs the order from the pending payment, then runs the saga.
func (s *PurchaseService) CompletePurchase(ctx context.Context, payerID, paymentID string) (PurchaseOutcome, error) {
	order, err := s.gateway.FetchOrderFromPayment(ctx, paymentID)
	if err != nil {
		return PurchaseOutcome{FaultKind: faults.KindOf(err), Detail: err.Error()}, err
	}

	currency := s.currencyCode()

	auth := &PaymentAuthorization{PayerID: payerID, PaymentID: paymentID}
	authorize := NewAuthorizeStep(s.gateway, auth)
	place := NewPlaceOrderStep(s.orders, order)

	result, err := s.orchestrator.Run(ctx, []saga.Step{authorize, place})

	outcome := PurchaseOutcome{SagaID: result.SagaID, Committed: result.Committed, Rollbacks: result.Rollbacks}
	if result.Committed {
		auth.Amount = orderAmount(order)
		auth.Currency = currency
		outcome.Authorization = auth
		outcome.Order = place.PlacedOrder()
		s.record(order, result, "", currency)
		return outcome, nil
	}

	outcome.FaultKind = faults.KindOf(err)
	outcome.Detail = err.Error()
	s.record(order, result, string(outcome.FaultKind), currency)

	decision, policyErr := s.enforcer.Evaluate(map[string]interface{}{
		"fault_kind":        string(outcome.FaultKind),
		"step_name":         result.FailedStep,
		"rollback_failures": float64(countRollbackFailures(result.Rollbacks)),
	})
	if policyErr != nil {
		log.Printf("purchase %s: policy evaluation failed: %v", result.SagaID, policyErr)
	}
	outcome.Decision = decision
	if decision.EscalateOperator {
		s.notifier.Alert(ctx, "purchase-failure", err, map[string]string{
			"sagaId":     result.SagaID,
			"customerId": order.CustomerID,
			"failedStep": result.FailedStep,
		})
	}
	return outcome, err
}

// currencyCode reads the portal currency for revenue reporting. A branding
// read failure degrades the report keying, never the purchase itself.
func (s *PurchaseService) currencyCode() string {
	brand, err := s.branding.Retrieve()
	if err != nil {
		log.Printf("retrieving branding configuration for reporting: %v", err)
		return ""
	}
	return brand.CurrencyCode
}

func (s *PurchaseService) record(order PurchaseOrder, result saga.Result, faultKind, currency string) {
	s.recorder.Record(reporting.Outcome{
		Timestamp:        time.Now(),
		SagaID:           result.SagaID,
		CustomerID:       order.CustomerID,
		Committed:        result.Committed,
		Amount:           orderAmount(order),
		Currency:         currency,
		FaultKind:        faultKind,
		FailedStep:       result.FailedStep,
		RollbackFailures: countRollbackFailures(result.Rollbacks),
	})
}

func orderAmount(order PurchaseOrder) float64 {
	var amount float64
	for _, li := range order.Subscriptions {
		amount += float64(li.Quantity) * li.SeatPrice
	}
	return amount
}

func countRollbackFailures(outcomes []saga.RollbackOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
