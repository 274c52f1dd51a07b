package commerce

import (
	"context"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yourorg/commerce-orchestrator/internal/faults"
)

var captureFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "capture_failures_total",
	Help: "Captures that failed after the purchase saga committed.",
})

// CaptureFailuresTotal exposes the capture failure counter for tests.
func CaptureFailuresTotal() prometheus.Counter { return captureFailuresTotal }

// CaptureProcessor finalizes an authorization hold into a settled charge
// once the provider confirms funds. This runs strictly after a saga has
// committed and is deliberately outside the rollback chain: captured money
// is never reversed automatically. A failed capture raises an operator alert
// and relies on manual recovery.
type CaptureProcessor struct {
	gateway  PaymentGateway
	notifier OperatorNotifier
}

// NewCaptureProcessor creates a CaptureProcessor.
func NewCaptureProcessor(gateway PaymentGateway, notifier OperatorNotifier) *CaptureProcessor {
	if gateway == nil {
		panic("PaymentGateway cannot be nil")
	}
	if notifier == nil {
		panic("OperatorNotifier cannot be nil")
	}
	return &CaptureProcessor{gateway: gateway, notifier: notifier}
}

// Capture settles the full held amount for the authorization. Not retried
// automatically; callers surface the returned fault to the operator channel
// only, never to the end user.
func (p *CaptureProcessor) Capture(ctx context.Context, authorizationCode string) error {
	if authorizationCode == "" {
		return faults.New(faults.InvalidInput, "authorization code is required")
	}
	if err := p.gateway.Capture(ctx, authorizationCode); err != nil {
		captureFailuresTotal.Inc()
		p.notifier.Alert(ctx, "capture-failure", err, map[string]string{
			"authorizationCode": authorizationCode,
		})
		return err
	}
	log.Printf("captured authorization %s", authorizationCode)
	return nil
}
