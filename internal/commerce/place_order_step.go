package commerce

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/yourorg/commerce-orchestrator/internal/faults"
	"github.com/yourorg/commerce-orchestrator/internal/saga"
)

// maxConcurrentSuspensions bounds the rollback fan-out against the order
// backend.
const maxConcurrentSuspensions = 4

// PlaceOrderStep submits the purchase order to the order backend. Its
// compensation suspends every subscription the order provisioned; the
// backend does not support deleting them.
type PlaceOrderStep struct {
	orders OrderClient
	order  PurchaseOrder
	placed *PlacedOrder
	state  saga.StepState
}

// NewPlaceOrderStep creates a step that places order with the backend.
func NewPlaceOrderStep(orders OrderClient, order PurchaseOrder) *PlaceOrderStep {
	return &PlaceOrderStep{orders: orders, order: order}
}

func (s *PlaceOrderStep) Name() string { return "place-order" }

func (s *PlaceOrderStep) State() saga.StepState { return s.state }

// PlacedOrder returns the backend's order record after a successful Execute,
// or nil.
func (s *PlaceOrderStep) PlacedOrder() *PlacedOrder { return s.placed }

func (s *PlaceOrderStep) Execute(ctx context.Context) error {
	placed, err := s.orders.CreateOrder(ctx, s.order)
	if err != nil {
		return err
	}
	s.placed = &placed
	s.state = saga.StateCommitted
	return nil
}

// Rollback suspends the subscriptions provisioned by the placed order. Each
// suspension attempt is isolated; one failure does not prevent the others.
// All attempts are awaited before returning, and the step leaves the
// committed state regardless of the outcome so the saga never retries the
// suspension fan-out internally.
func (s *PlaceOrderStep) Rollback(ctx context.Context) error {
	if s.state != saga.StateCommitted {
		return nil
	}
	placed := s.placed
	s.state = saga.StateCompensated
	s.placed = nil

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	sem := make(chan struct{}, maxConcurrentSuspensions)

	for _, item := range placed.LineItems {
		wg.Add(1)
		go func(item PlacedLineItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := s.suspend(ctx, item.SubscriptionID); err != nil {
				log.Printf("place-order rollback: failed to suspend subscription %s: %v", item.SubscriptionID, err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			log.Printf("place-order rollback: suspended subscription %s", item.SubscriptionID)
		}(item)
	}
	wg.Wait()

	for _, err := range errs {
		if faults.IsFatal(err) {
			return err
		}
	}
	if len(errs) > 0 {
		agg := faults.New(faults.DownstreamServiceError,
			"failed to suspend %d of %d subscriptions for order %s", len(errs), len(placed.LineItems), placed.ID)
		for i, err := range errs {
			agg.WithDetail(fmt.Sprintf("suspensionFailure%d", i), err.Error())
		}
		return agg
	}
	return nil
}

func (s *PlaceOrderStep) suspend(ctx context.Context, subscriptionID string) error {
	sub, err := s.orders.GetSubscription(ctx, s.order.CustomerID, subscriptionID)
	if err != nil {
		return err
	}
	sub.Status = SubscriptionSuspended
	sub.FriendlyName = TagUnpaid(sub.FriendlyName)
	_, err = s.orders.PatchSubscription(ctx, s.order.CustomerID, sub)
	return err
}
