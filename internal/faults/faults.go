// Package faults defines the closed error taxonomy observed by every layer
// above the provider and backend boundaries. Adapters translate raw provider
// payloads into a Fault at the boundary; nothing downstream branches on
// vendor-specific error types.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure.
type Kind string

const (
	// InvalidInput means the caller-supplied order or configuration failed
	// validation. Never retried.
	InvalidInput Kind = "InvalidInput"

	// AlreadyExists means the backend reported a conflicting resource.
	AlreadyExists Kind = "AlreadyExists"

	// DownstreamServiceError covers transient or unclassified backend
	// failures. The caller may retry the whole purchase.
	DownstreamServiceError Kind = "DownstreamServiceError"

	// PaymentGatewayFailure is a provider-side error during checkout
	// creation, authorize, capture or void.
	PaymentGatewayFailure Kind = "PaymentGatewayFailure"

	// PaymentGatewayPaymentError means the provider reported the payment
	// itself as not approved.
	PaymentGatewayPaymentError Kind = "PaymentGatewayPaymentError"

	// PaymentGatewayIdentityFailureDuringConfiguration flags bad credentials
	// detected while validating payment configuration. Operator problem, not
	// an end-user problem.
	PaymentGatewayIdentityFailureDuringConfiguration Kind = "PaymentGatewayIdentityFailureDuringConfiguration"

	// PaymentGatewayIdentityFailureDuringPayment flags bad credentials
	// surfacing mid-payment, e.g. a secret rotated without updating config.
	PaymentGatewayIdentityFailureDuringPayment Kind = "PaymentGatewayIdentityFailureDuringPayment"

	// Fatal marks resource exhaustion, corruption or invariant violations.
	// Never swallowed by best-effort paths.
	Fatal Kind = "Fatal"
)

// Fault is the structured failure returned across the orchestration core.
type Fault struct {
	Kind    Kind
	Message string
	Details map[string]string
	Cause   error
}

func (f *Fault) Error() string {
	var b strings.Builder
	b.WriteString(string(f.Kind))
	if f.Message != "" {
		b.WriteString(": ")
		b.WriteString(f.Message)
	}
	if f.Cause != nil {
		fmt.Fprintf(&b, ": %v", f.Cause)
	}
	return b.String()
}

func (f *Fault) Unwrap() error { return f.Cause }

// New creates a Fault of the given kind.
func New(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a Fault of the given kind wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithDetail attaches a key/value pair for operator visibility.
func (f *Fault) WithDetail(key, value string) *Fault {
	if f.Details == nil {
		f.Details = make(map[string]string)
	}
	f.Details[key] = value
	return f
}

// KindOf extracts the Kind from err. Unclassified errors map to
// DownstreamServiceError so callers always observe the taxonomy.
func KindOf(err error) Kind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return DownstreamServiceError
}

// IsFatal reports whether err must propagate out of best-effort paths.
func IsFatal(err error) bool {
	var f *Fault
	return errors.As(err, &f) && f.Kind == Fatal
}

// Detail returns a detail value previously attached with WithDetail.
func Detail(err error, key string) string {
	var f *Fault
	if errors.As(err, &f) && f.Details != nil {
		return f.Details[key]
	}
	return ""
}
