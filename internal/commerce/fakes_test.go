package commerce

import (
	"context"
	"sync"
)

// fakeGateway implements PaymentGateway with overridable behavior per call.
type fakeGateway struct {
	GenerateCheckoutURIFunc   func(ctx context.Context, redirectURL string, order PurchaseOrder) (string, error)
	ExecutePaymentFunc        func(ctx context.Context, payerID, paymentID string) (string, error)
	CaptureFunc               func(ctx context.Context, authorizationCode string) error
	VoidFunc                  func(ctx context.Context, authorizationCode string) error
	FetchOrderFromPaymentFunc func(ctx context.Context, paymentID string) (PurchaseOrder, error)

	mu       sync.Mutex
	voided   []string
	captured []string
}

func (g *fakeGateway) GenerateCheckoutURI(ctx context.Context, redirectURL string, order PurchaseOrder) (string, error) {
	if g.GenerateCheckoutURIFunc != nil {
		return g.GenerateCheckoutURIFunc(ctx, redirectURL, order)
	}
	return "https://provider.example/checkout", nil
}

func (g *fakeGateway) ExecutePayment(ctx context.Context, payerID, paymentID string) (string, error) {
	if g.ExecutePaymentFunc != nil {
		return g.ExecutePaymentFunc(ctx, payerID, paymentID)
	}
	return "AUTH123", nil
}

func (g *fakeGateway) Capture(ctx context.Context, authorizationCode string) error {
	g.mu.Lock()
	g.captured = append(g.captured, authorizationCode)
	g.mu.Unlock()
	if g.CaptureFunc != nil {
		return g.CaptureFunc(ctx, authorizationCode)
	}
	return nil
}

func (g *fakeGateway) Void(ctx context.Context, authorizationCode string) error {
	g.mu.Lock()
	g.voided = append(g.voided, authorizationCode)
	g.mu.Unlock()
	if g.VoidFunc != nil {
		return g.VoidFunc(ctx, authorizationCode)
	}
	return nil
}

func (g *fakeGateway) FetchOrderFromPayment(ctx context.Context, paymentID string) (PurchaseOrder, error) {
	if g.FetchOrderFromPaymentFunc != nil {
		return g.FetchOrderFromPaymentFunc(ctx, paymentID)
	}
	return PurchaseOrder{
		CustomerID: "cust-1",
		Operation:  NewPurchase,
		Subscriptions: []LineItem{
			{OfferID: "offer-1", FriendlyName: "Mail Plan", Quantity: 2, SeatPrice: 10},
		},
	}, nil
}

// fakeOrderClient implements OrderClient backed by an in-memory subscription
// table so rollback paths can be observed.
type fakeOrderClient struct {
	CreateOrderFunc       func(ctx context.Context, order PurchaseOrder) (PlacedOrder, error)
	GetSubscriptionFunc   func(ctx context.Context, customerID, subscriptionID string) (Subscription, error)
	PatchSubscriptionFunc func(ctx context.Context, customerID string, sub Subscription) (Subscription, error)

	mu            sync.Mutex
	subscriptions map[string]Subscription
	patched       []string
	getCalls      int
}

func newFakeOrderClient(subs ...Subscription) *fakeOrderClient {
	c := &fakeOrderClient{subscriptions: make(map[string]Subscription)}
	for _, s := range subs {
		c.subscriptions[s.ID] = s
	}
	return c
}

func (c *fakeOrderClient) CreateOrder(ctx context.Context, order PurchaseOrder) (PlacedOrder, error) {
	if c.CreateOrderFunc != nil {
		return c.CreateOrderFunc(ctx, order)
	}
	placed := PlacedOrder{ID: "order-1"}
	for i, li := range order.Subscriptions {
		placed.LineItems = append(placed.LineItems, PlacedLineItem{
			LineItemNumber: i,
			OfferID:        li.OfferID,
			SubscriptionID: "sub-" + li.OfferID,
			FriendlyName:   li.FriendlyName,
			Quantity:       li.Quantity,
		})
	}
	return placed, nil
}

func (c *fakeOrderClient) GetSubscription(ctx context.Context, customerID, subscriptionID string) (Subscription, error) {
	c.mu.Lock()
	c.getCalls++
	c.mu.Unlock()
	if c.GetSubscriptionFunc != nil {
		return c.GetSubscriptionFunc(ctx, customerID, subscriptionID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscriptions[subscriptionID], nil
}

func (c *fakeOrderClient) PatchSubscription(ctx context.Context, customerID string, sub Subscription) (Subscription, error) {
	if c.PatchSubscriptionFunc != nil {
		return c.PatchSubscriptionFunc(ctx, customerID, sub)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[sub.ID] = sub
	c.patched = append(c.patched, sub.ID)
	return sub, nil
}

// fakeNotifier records operator alerts.
type fakeNotifier struct {
	mu     sync.Mutex
	alerts []string
}

func (n *fakeNotifier) Alert(ctx context.Context, subject string, err error, details map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, subject)
}
