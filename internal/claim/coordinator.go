// Package claim is the single entry point for couriers taking and finishing
// delivery jobs. It decides which transition is legal from each call site;
// the store's compare-and-set decides who wins a race.
package claim

import (
	"context"
	"fmt"

	"github.com/campusrun/orders/internal/orders"
)

type Coordinator struct {
	Store orders.Store
}

// Claim moves a PENDING order to ACCEPTED and assigns courierID. Of any set
// of concurrent claimants exactly one succeeds; the rest get ErrConflict,
// which is terminal for them: the job is gone, not worth retrying.
func (c *Coordinator) Claim(ctx context.Context, orderID, courierID string) (orders.Order, error) {
	if courierID == "" {
		return orders.Order{}, fmt.Errorf("%w: missing courier id", orders.ErrValidation)
	}
	return c.Store.ApplyTransition(ctx, orderID, orders.StatusPending, orders.StatusAccepted, courierID)
}

// MarkDelivered completes an ACCEPTED order. Only the assigned courier may
// call it; anyone else gets ErrForbidden regardless of the order's state.
func (c *Coordinator) MarkDelivered(ctx context.Context, orderID, courierID string) (orders.Order, error) {
	if courierID == "" {
		return orders.Order{}, fmt.Errorf("%w: missing courier id", orders.ErrValidation)
	}
	o, err := c.Store.Get(ctx, orderID)
	if err != nil {
		return orders.Order{}, err
	}
	if o.CourierID != "" && o.CourierID != courierID {
		return orders.Order{}, fmt.Errorf("%w: order %s belongs to another courier", orders.ErrForbidden, orderID)
	}
	return c.Store.ApplyTransition(ctx, orderID, orders.StatusAccepted, orders.StatusDelivered, "")
}

// Cancel lets the owning customer void an order that no courier has taken.
func (c *Coordinator) Cancel(ctx context.Context, orderID, customerID string) (orders.Order, error) {
	if customerID == "" {
		return orders.Order{}, fmt.Errorf("%w: missing customer id", orders.ErrValidation)
	}
	o, err := c.Store.Get(ctx, orderID)
	if err != nil {
		return orders.Order{}, err
	}
	if o.CustomerID != customerID {
		return orders.Order{}, fmt.Errorf("%w: order %s belongs to another customer", orders.ErrForbidden, orderID)
	}
	return c.Store.ApplyTransition(ctx, orderID, orders.StatusPending, orders.StatusCancelled, "")
}
