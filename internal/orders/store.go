package orders

import (
	"context"
	"fmt"
	"strings"
)

// Store is the single source of truth for orders. All mutation after creation
// goes through ApplyTransition, the per-order serialization point.
type Store interface {
	// Create assigns id and timestamps and persists o as a new order.
	// Fails with ErrValidation if the order breaks a creation invariant.
	Create(ctx context.Context, o Order) (Order, error)

	// Get fails with ErrNotFound if no order has that id.
	Get(ctx context.Context, id string) (Order, error)

	// ListPending returns all PENDING orders, newest first. The result is a
	// snapshot and may be stale relative to concurrent claims.
	ListPending(ctx context.Context) ([]Order, error)

	// ApplyTransition atomically moves the order from expected to next,
	// assigning courierID when next is ACCEPTED. Exactly one of any set of
	// concurrent callers with the same expected status succeeds; the rest
	// fail with ErrConflict.
	ApplyTransition(ctx context.Context, id string, expected, next Status, courierID string) (Order, error)
}

// Catalog is the read-only product side consumed at checkout.
type Catalog interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	// ProductsByID returns the subset of ids that exist, keyed by id.
	ProductsByID(ctx context.Context, ids []string) (map[string]Product, error)
}

// ValidateNew checks the creation invariants shared by every Store
// implementation. ID and timestamps are assigned by the store afterwards.
func ValidateNew(o Order) error {
	if o.CustomerID == "" {
		return fmt.Errorf("%w: missing customer id", ErrValidation)
	}
	if strings.TrimSpace(o.DeliveryAddress) == "" {
		return fmt.Errorf("%w: missing delivery address", ErrValidation)
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("%w: order has no items", ErrValidation)
	}
	subtotal := 0
	for _, it := range o.Items {
		if it.ProductID == "" {
			return fmt.Errorf("%w: item missing product id", ErrValidation)
		}
		if it.Qty <= 0 {
			return fmt.Errorf("%w: invalid qty for product %s", ErrValidation, it.ProductID)
		}
		if it.PriceCents < 0 {
			return fmt.Errorf("%w: negative price for product %s", ErrValidation, it.ProductID)
		}
		subtotal += it.PriceCents * it.Qty
	}
	if o.SubtotalCents != subtotal {
		return fmt.Errorf("%w: subtotal %d does not match items (%d)", ErrValidation, o.SubtotalCents, subtotal)
	}
	if o.DeliveryFeeCents < 0 {
		return fmt.Errorf("%w: negative delivery fee", ErrValidation)
	}
	if o.TotalCents != o.SubtotalCents+o.DeliveryFeeCents {
		return fmt.Errorf("%w: total %d != subtotal %d + fee %d",
			ErrValidation, o.TotalCents, o.SubtotalCents, o.DeliveryFeeCents)
	}
	if o.CourierID != "" {
		return fmt.Errorf("%w: courier set before claim", ErrValidation)
	}
	return nil
}

// CheckTransition rejects transition requests that no store may ever apply:
// unknown statuses, moves outside the lifecycle graph, and courier
// assignments that would break the courier-iff-accepted invariant.
func CheckTransition(expected, next Status, courierID string) error {
	if !expected.Valid() || !next.Valid() {
		return fmt.Errorf("%w: unknown status", ErrValidation)
	}
	if !CanTransition(expected, next) {
		return fmt.Errorf("%w: illegal transition %s -> %s", ErrValidation, expected, next)
	}
	if next == StatusAccepted && courierID == "" {
		return fmt.Errorf("%w: claim requires a courier id", ErrValidation)
	}
	if next != StatusAccepted && courierID != "" {
		return fmt.Errorf("%w: courier id only set on claim", ErrValidation)
	}
	return nil
}
