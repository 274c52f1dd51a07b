package commerce

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/commerce-orchestrator/internal/faults"
)

func TestCapture_SettlesAuthorization(t *testing.T) {
	gateway := &fakeGateway{}
	notifier := &fakeNotifier{}
	proc := NewCaptureProcessor(gateway, notifier)

	require.NoError(t, proc.Capture(context.Background(), "AUTH123"))

	assert.Equal(t, []string{"AUTH123"}, gateway.captured)
	assert.Empty(t, notifier.alerts)
}

func TestCapture_EmptyCodeRejected(t *testing.T) {
	proc := NewCaptureProcessor(&fakeGateway{}, &fakeNotifier{})

	err := proc.Capture(context.Background(), "")

	require.Error(t, err)
	assert.Equal(t, faults.InvalidInput, faults.KindOf(err))
}

func TestCapture_FailureAlertsOperator(t *testing.T) {
	gateway := &fakeGateway{
		CaptureFunc: func(ctx context.Context, code string) error {
			return faults.New(faults.PaymentGatewayFailure, "capture declined")
		},
	}
	notifier := &fakeNotifier{}
	proc := NewCaptureProcessor(gateway, notifier)

	err := proc.Capture(context.Background(), "AUTH123")

	require.Error(t, err)
	assert.Equal(t, faults.PaymentGatewayFailure, faults.KindOf(err))
	assert.Equal(t, []string{"capture-failure"}, notifier.alerts, "failed capture is an operator problem, never a rollback")
}
