package commerce

import (
	"context"

	"github.com/yourorg/commerce-orchestrator/internal/config"
)

// PaymentGateway is the capability set the purchase flow needs from a
// payment provider. Every call is a real external state change; the adapter
// behind this interface translates provider errors into the faults taxonomy
// so nothing above it observes vendor-specific types.
type PaymentGateway interface {
	// GenerateCheckoutURI creates a pending payment for the order's line
	// items and returns the provider-hosted checkout URL the payer is
	// redirected to.
	GenerateCheckoutURI(ctx context.Context, redirectURL string, order PurchaseOrder) (string, error)

	// ExecutePayment finalizes the payer's consent into an authorization
	// hold and returns the authorization code.
	ExecutePayment(ctx context.Context, payerID, paymentID string) (string, error)

	// Capture settles the full held amount for the authorization, releasing
	// any residual hold.
	Capture(ctx context.Context, authorizationCode string) error

	// Void releases a hold without capturing funds. Safe to call on an
	// already-voided authorization; the provider deduplicates.
	Void(ctx context.Context, authorizationCode string) error

	// FetchOrderFromPayment reconstructs the purchase order from a pending
	// payment's correlation token and item list, for flows resuming after
	// an external redirect.
	FetchOrderFromPayment(ctx context.Context, paymentID string) (PurchaseOrder, error)
}

// GatewayAdministrator covers the configuration-time provider operations
// used by the admin surface rather than the purchase flow.
type GatewayAdministrator interface {
	// ValidateConfiguration verifies credential fields and account mode and
	// performs a real credential exchange, classifying identity failures
	// distinctly from connectivity failures.
	ValidateConfiguration(ctx context.Context, cfg config.PaymentConfig) error

	// CreateWebExperienceProfile creates a provider-hosted checkout
	// experience profile from current branding and best-effort deletes the
	// profile it replaces. Returns the new profile id.
	CreateWebExperienceProfile(ctx context.Context, payCfg config.PaymentConfig, brandCfg config.BrandingConfig) (string, error)
}

// OrderClient is the capability set the purchase flow needs from the order
// management backend. Implementations classify backend failures into the
// faults taxonomy at the boundary.
type OrderClient interface {
	CreateOrder(ctx context.Context, order PurchaseOrder) (PlacedOrder, error)
	GetSubscription(ctx context.Context, customerID, subscriptionID string) (Subscription, error)
	PatchSubscription(ctx context.Context, customerID string, sub Subscription) (Subscription, error)
}

// OperatorNotifier is the operator-facing alert channel for failures that
// have no automated recovery path, e.g. a failed capture or an unvoided
// authorization hold.
type OperatorNotifier interface {
	Alert(ctx context.Context, subject string, err error, details map[string]string)
}
