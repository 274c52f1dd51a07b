// Package commerce holds the purchase domain model and the transaction steps
// that coordinate the payment provider and the order backend for a single
// customer purchase.
package commerce

import (
	"fmt"
	"strings"
)

// OperationType identifies what kind of purchase a saga performs.
type OperationType string

const (
	NewPurchase             OperationType = "NewPurchase"
	AdditionalSeatsPurchase OperationType = "AdditionalSeatsPurchase"
	Renewal                 OperationType = "Renewal"
)

// ParseOperationType parses a case-insensitive operation name, e.g. from a
// checkout correlation token.
func ParseOperationType(s string) (OperationType, error) {
	for _, op := range []OperationType{NewPurchase, AdditionalSeatsPurchase, Renewal} {
		if strings.EqualFold(s, string(op)) {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operation type %q", s)
}

// LineItem is one subscription entry of a purchase order.
type LineItem struct {
	SubscriptionID string  `json:"subscriptionId,omitempty"`
	OfferID        string  `json:"offerId"`
	FriendlyName   string  `json:"friendlyName,omitempty"`
	Quantity       int     `json:"quantity"`
	SeatPrice      float64 `json:"seatPrice"`
}

// PurchaseOrder is the immutable input to a purchase saga.
type PurchaseOrder struct {
	CustomerID    string        `json:"customerId"`
	Operation     OperationType `json:"operation"`
	Subscriptions []LineItem    `json:"subscriptions"`
}

// PaymentAuthorization tracks a provider hold on funds. The authorization
// code is populated by AuthorizeStep.Execute and consumed by capture or void;
// Amount and Currency are filled once the purchase commits.
type PaymentAuthorization struct {
	PayerID           string  `json:"payerId"`
	PaymentID         string  `json:"paymentId"`
	AuthorizationCode string  `json:"authorizationCode,omitempty"`
	Amount            float64 `json:"amount,omitempty"`
	Currency          string  `json:"currency,omitempty"`
}

// PlacedLineItem is a line item as returned by the order backend, carrying
// the backend-assigned subscription identifier.
type PlacedLineItem struct {
	LineItemNumber int    `json:"lineItemNumber"`
	OfferID        string `json:"offerId"`
	SubscriptionID string `json:"subscriptionId"`
	FriendlyName   string `json:"friendlyName,omitempty"`
	Quantity       int    `json:"quantity"`
}

// PlacedOrder is the order backend's record of a placed order.
type PlacedOrder struct {
	ID        string           `json:"id"`
	LineItems []PlacedLineItem `json:"lineItems"`
}

// SubscriptionStatus is the lifecycle state of a provisioned subscription.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionSuspended SubscriptionStatus = "suspended"
)

// Subscription is a provisioned subscription at the order backend. The
// backend does not support deletion; compensation suspends instead.
type Subscription struct {
	ID           string             `json:"id"`
	FriendlyName string             `json:"friendlyName"`
	Status       SubscriptionStatus `json:"status"`
}

// UnpaidSuffix is appended to a subscription's display name when it is
// suspended because its order was rolled back before payment settled.
const UnpaidSuffix = " (unpaid)"

// TagUnpaid appends UnpaidSuffix exactly once regardless of how many times
// it is applied.
func TagUnpaid(friendlyName string) string {
	return strings.ReplaceAll(friendlyName, UnpaidSuffix, "") + UnpaidSuffix
}
