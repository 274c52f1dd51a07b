package commerce

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/commerce-orchestrator/internal/faults"
	"github.com/yourorg/commerce-orchestrator/internal/saga"
)

func TestAuthorizeStep_ExecuteStoresAuthorizationCode(t *testing.T) {
	gateway := &fakeGateway{}
	auth := &PaymentAuthorization{PayerID: "payer-1", PaymentID: "PAY-1"}
	step := NewAuthorizeStep(gateway, auth)

	require.NoError(t, step.Execute(context.Background()))

	assert.Equal(t, "AUTH123", auth.AuthorizationCode)
	assert.Equal(t, saga.StateCommitted, step.State())
}

func TestAuthorizeStep_ExecuteFailureLeavesStepNotStarted(t *testing.T) {
	gateway := &fakeGateway{
		ExecutePaymentFunc: func(ctx context.Context, payerID, paymentID string) (string, error) {
			return "", faults.New(faults.PaymentGatewayPaymentError, "payment not approved")
		},
	}
	auth := &PaymentAuthorization{PayerID: "payer-1", PaymentID: "PAY-1"}
	step := NewAuthorizeStep(gateway, auth)

	err := step.Execute(context.Background())

	require.Error(t, err)
	assert.Equal(t, saga.StateNotStarted, step.State())
	assert.Empty(t, auth.AuthorizationCode)

	// Rollback on a step that never committed must not touch the gateway.
	require.NoError(t, step.Rollback(context.Background()))
	assert.Empty(t, gateway.voided)
}

func TestAuthorizeStep_RollbackVoidsAuthorization(t *testing.T) {
	gateway := &fakeGateway{}
	auth := &PaymentAuthorization{PayerID: "payer-1", PaymentID: "PAY-1"}
	step := NewAuthorizeStep(gateway, auth)
	require.NoError(t, step.Execute(context.Background()))

	require.NoError(t, step.Rollback(context.Background()))

	assert.Equal(t, []string{"AUTH123"}, gateway.voided)
	assert.Equal(t, saga.StateCompensated, step.State())
	assert.Empty(t, auth.AuthorizationCode, "a voided code must not be captured later")
}

func TestAuthorizeStep_VoidFailureReportedWithoutRetrigger(t *testing.T) {
	gateway := &fakeGateway{
		VoidFunc: func(ctx context.Context, code string) error {
			return faults.New(faults.PaymentGatewayFailure, "provider unavailable")
		},
	}
	auth := &PaymentAuthorization{PayerID: "payer-1", PaymentID: "PAY-1"}
	step := NewAuthorizeStep(gateway, auth)
	require.NoError(t, step.Execute(context.Background()))

	err := step.Rollback(context.Background())

	require.Error(t, err)
	assert.Equal(t, faults.PaymentGatewayFailure, faults.KindOf(err))
	assert.Equal(t, "AUTH123", faults.Detail(err, "authorizationCode"))
	assert.Equal(t, saga.StateCompensated, step.State())

	// A second rollback is a no-op: the failing void is not re-triggered.
	require.NoError(t, step.Rollback(context.Background()))
	assert.Equal(t, []string{"AUTH123"}, gateway.voided)
}

func TestAuthorizeStep_FatalVoidErrorPropagatesUnwrapped(t *testing.T) {
	fatal := faults.New(faults.Fatal, "ledger corruption")
	gateway := &fakeGateway{
		VoidFunc: func(ctx context.Context, code string) error { return fatal },
	}
	auth := &PaymentAuthorization{PayerID: "payer-1", PaymentID: "PAY-1"}
	step := NewAuthorizeStep(gateway, auth)
	require.NoError(t, step.Execute(context.Background()))

	err := step.Rollback(context.Background())

	require.ErrorIs(t, err, fatal)
	assert.True(t, faults.IsFatal(err))
}
