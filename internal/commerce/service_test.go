package commerce

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/commerce-orchestrator/internal/config"
	"github.com/yourorg/commerce-orchestrator/internal/faults"
	"github.com/yourorg/commerce-orchestrator/internal/policy"
	"github.com/yourorg/commerce-orchestrator/internal/reporting"
	"github.com/yourorg/commerce-orchestrator/internal/saga"
)

func newTestService(t *testing.T, gateway *fakeGateway, orders *fakeOrderClient, notifier *fakeNotifier) (*PurchaseService, *reporting.Recorder) {
	t.Helper()
	enforcer, err := policy.NewEnforcer(policy.DefaultRules())
	require.NoError(t, err)
	recorder := reporting.NewRecorder()
	branding := config.NewInMemoryBrandingRepository(config.BrandingConfig{
		OrganizationName:      "Contoso",
		LocaleCode:            "US",
		CurrencyCode:          "USD",
		CurrencyDecimalDigits: 2,
	})
	return NewPurchaseService(gateway, orders, branding, saga.NewOrchestrator(), enforcer, notifier, recorder), recorder
}

func TestCheckout_RejectsEmptyOrder(t *testing.T) {
	svc, _ := newTestService(t, &fakeGateway{}, newFakeOrderClient(), &fakeNotifier{})

	_, err := svc.Checkout(context.Background(), "https://portal.example/return", PurchaseOrder{CustomerID: "cust-1"})

	require.Error(t, err)
	assert.Equal(t, faults.InvalidInput, faults.KindOf(err))
}

func TestCheckout_ReturnsProviderURL(t *testing.T) {
	svc, _ := newTestService(t, &fakeGateway{}, newFakeOrderClient(), &fakeNotifier{})

	url, err := svc.Checkout(context.Background(), "https://portal.example/return", twoItemOrder())

	require.NoError(t, err)
	assert.Equal(t, "https://provider.example/checkout", url)
}

func TestCompletePurchase_Commits(t *testing.T) {
	gateway := &fakeGateway{}
	orders := newFakeOrderClient()
	notifier := &fakeNotifier{}
	svc, recorder := newTestService(t, gateway, orders, notifier)

	outcome, err := svc.CompletePurchase(context.Background(), "payer-1", "PAY-1")

	require.NoError(t, err)
	assert.True(t, outcome.Committed)
	require.NotNil(t, outcome.Authorization)
	assert.Equal(t, "AUTH123", outcome.Authorization.AuthorizationCode)
	assert.Equal(t, 20.0, outcome.Authorization.Amount)
	assert.Equal(t, "USD", outcome.Authorization.Currency)
	require.NotNil(t, outcome.Order)
	assert.Equal(t, "order-1", outcome.Order.ID)
	assert.Empty(t, notifier.alerts)

	report := recorder.Report()
	assert.Equal(t, 1, report.Committed)
}

func TestCompletePurchase_RevenueKeyedByPortalCurrency(t *testing.T) {
	svc, recorder := newTestService(t, &fakeGateway{}, newFakeOrderClient(), &fakeNotifier{})

	_, err := svc.CompletePurchase(context.Background(), "payer-1", "PAY-1")
	require.NoError(t, err)

	report := recorder.Report()
	assert.Equal(t, 20.0, report.AmountByCurrency["USD"])
	assert.NotContains(t, report.AmountByCurrency, "", "revenue must never aggregate under an empty currency key")
}

func TestCompletePurchase_OrderFailureVoidsAuthorization(t *testing.T) {
	gateway := &fakeGateway{}
	orders := newFakeOrderClient()
	orders.CreateOrderFunc = func(ctx context.Context, order PurchaseOrder) (PlacedOrder, error) {
		return PlacedOrder{}, faults.New(faults.AlreadyExists, "order already placed for payment")
	}
	notifier := &fakeNotifier{}
	svc, _ := newTestService(t, gateway, orders, notifier)

	outcome, err := svc.CompletePurchase(context.Background(), "payer-1", "PAY-1")

	require.Error(t, err)
	assert.Equal(t, faults.AlreadyExists, faults.KindOf(err), "the original fault survives compensation")
	assert.False(t, outcome.Committed)
	assert.Equal(t, faults.AlreadyExists, outcome.FaultKind)

	// The authorization hold was released; no subscription was ever touched.
	assert.Equal(t, []string{"AUTH123"}, gateway.voided)
	assert.Zero(t, orders.getCalls)
}

func TestCompletePurchase_AuthorizeFailureSkipsOrderPlacement(t *testing.T) {
	gateway := &fakeGateway{
		ExecutePaymentFunc: func(ctx context.Context, payerID, paymentID string) (string, error) {
			return "", faults.New(faults.PaymentGatewayPaymentError, "payment not approved")
		},
	}
	orders := newFakeOrderClient()
	created := false
	orders.CreateOrderFunc = func(ctx context.Context, order PurchaseOrder) (PlacedOrder, error) {
		created = true
		return PlacedOrder{}, nil
	}
	svc, _ := newTestService(t, gateway, orders, &fakeNotifier{})

	outcome, err := svc.CompletePurchase(context.Background(), "payer-1", "PAY-1")

	require.Error(t, err)
	assert.False(t, outcome.Committed)
	assert.False(t, created, "order placement must not run when authorization fails")
	assert.Empty(t, gateway.voided, "nothing committed, nothing to void")
}

func TestCompletePurchase_RollbackFailureEscalatesToOperator(t *testing.T) {
	gateway := &fakeGateway{
		VoidFunc: func(ctx context.Context, code string) error {
			return faults.New(faults.PaymentGatewayFailure, "provider unavailable")
		},
	}
	orders := newFakeOrderClient()
	orders.CreateOrderFunc = func(ctx context.Context, order PurchaseOrder) (PlacedOrder, error) {
		return PlacedOrder{}, faults.New(faults.DownstreamServiceError, "backend timeout")
	}
	notifier := &fakeNotifier{}
	svc, _ := newTestService(t, gateway, orders, notifier)

	outcome, err := svc.CompletePurchase(context.Background(), "payer-1", "PAY-1")

	require.Error(t, err)
	assert.Equal(t, faults.DownstreamServiceError, faults.KindOf(err), "the void failure must not mask the order fault")
	assert.True(t, outcome.Decision.EscalateOperator)
	assert.Equal(t, []string{"purchase-failure"}, notifier.alerts)
	require.Len(t, outcome.Rollbacks, 1)
	assert.Error(t, outcome.Rollbacks[0].Err)
}

func TestCompletePurchase_FetchOrderFailure(t *testing.T) {
	gateway := &fakeGateway{
		FetchOrderFromPaymentFunc: func(ctx context.Context, paymentID string) (PurchaseOrder, error) {
			return PurchaseOrder{}, faults.New(faults.PaymentGatewayFailure, "payment lookup failed")
		},
	}
	svc, _ := newTestService(t, gateway, newFakeOrderClient(), &fakeNotifier{})

	outcome, err := svc.CompletePurchase(context.Background(), "payer-1", "PAY-1")

	require.Error(t, err)
	assert.Equal(t, faults.PaymentGatewayFailure, outcome.FaultKind)
	assert.Empty(t, outcome.SagaID, "no saga runs when the order cannot be reconstructed")
}
