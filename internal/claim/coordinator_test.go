package claim

import (
	"context"
	"errors"
	"testing"

	"github.com/campusrun/orders/internal/orders"
)

func newOrder(t *testing.T, store orders.Store) orders.Order {
	t.Helper()
	o, err := store.Create(context.Background(), orders.Order{
		CustomerID:      "student-01",
		DeliveryAddress: "Moremi Hall, Block C, Room 205",
		Items: []orders.OrderItem{
			{ProductID: "p1", Name: "Titus Fish (Frozen)", Qty: 2, PriceCents: 4500},
			{ProductID: "p2", Name: "Indomie Super Pack", Qty: 1, PriceCents: 12500},
		},
		SubtotalCents:    21500,
		DeliveryFeeCents: 500,
		TotalCents:       22000,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

// The reference lifecycle: checkout, one claim wins, a later claim loses,
// the winner delivers.
func TestCoordinatorLifecycle(t *testing.T) {
	ctx := context.Background()
	store := orders.NewMemStore()
	c := &Coordinator{Store: store}
	o := newOrder(t, store)

	claimed, err := c.Claim(ctx, o.ID, "courierA")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.Status != orders.StatusAccepted || claimed.CourierID != "courierA" {
		t.Fatalf("bad claim result: %+v", claimed)
	}

	if _, err := c.Claim(ctx, o.ID, "courierB"); !errors.Is(err, orders.ErrConflict) {
		t.Fatalf("second claim: expected ErrConflict, got %v", err)
	}

	done, err := c.MarkDelivered(ctx, o.ID, "courierA")
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if done.Status != orders.StatusDelivered || done.CourierID != "courierA" {
		t.Fatalf("bad delivered state: %+v", done)
	}
}

func TestCoordinatorMarkDelivered(t *testing.T) {
	ctx := context.Background()

	t.Run("forbidden for a different courier", func(t *testing.T) {
		store := orders.NewMemStore()
		c := &Coordinator{Store: store}
		o := newOrder(t, store)
		if _, err := c.Claim(ctx, o.ID, "courierA"); err != nil {
			t.Fatalf("claim: %v", err)
		}

		_, err := c.MarkDelivered(ctx, o.ID, "courierB")
		if !errors.Is(err, orders.ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
		got, _ := store.Get(ctx, o.ID)
		if got.Status != orders.StatusAccepted {
			t.Errorf("forbidden call must not change state, got %s", got.Status)
		}
	})

	t.Run("conflict when order is not ACCEPTED", func(t *testing.T) {
		store := orders.NewMemStore()
		c := &Coordinator{Store: store}
		o := newOrder(t, store)

		// Never claimed: no assignee, so no Forbidden, just a failed CAS.
		if _, err := c.MarkDelivered(ctx, o.ID, "courierA"); !errors.Is(err, orders.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}

		if _, err := c.Claim(ctx, o.ID, "courierA"); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if _, err := c.MarkDelivered(ctx, o.ID, "courierA"); err != nil {
			t.Fatalf("deliver: %v", err)
		}
		if _, err := c.MarkDelivered(ctx, o.ID, "courierA"); !errors.Is(err, orders.ErrConflict) {
			t.Errorf("double delivery: expected ErrConflict, got %v", err)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		c := &Coordinator{Store: orders.NewMemStore()}
		if _, err := c.MarkDelivered(ctx, "missing", "courierA"); !errors.Is(err, orders.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("missing courier id", func(t *testing.T) {
		store := orders.NewMemStore()
		c := &Coordinator{Store: store}
		o := newOrder(t, store)
		if _, err := c.MarkDelivered(ctx, o.ID, ""); !errors.Is(err, orders.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})
}

func TestCoordinatorCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("owner cancels a pending order", func(t *testing.T) {
		store := orders.NewMemStore()
		c := &Coordinator{Store: store}
		o := newOrder(t, store)

		got, err := c.Cancel(ctx, o.ID, "student-01")
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if got.Status != orders.StatusCancelled {
			t.Errorf("expected CANCELLED, got %s", got.Status)
		}
		if _, err := c.Claim(ctx, o.ID, "courierA"); !errors.Is(err, orders.ErrConflict) {
			t.Errorf("claim after cancel: expected ErrConflict, got %v", err)
		}
	})

	t.Run("only the owner may cancel", func(t *testing.T) {
		store := orders.NewMemStore()
		c := &Coordinator{Store: store}
		o := newOrder(t, store)
		if _, err := c.Cancel(ctx, o.ID, "someone-else"); !errors.Is(err, orders.ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("cancel loses to a claim", func(t *testing.T) {
		store := orders.NewMemStore()
		c := &Coordinator{Store: store}
		o := newOrder(t, store)
		if _, err := c.Claim(ctx, o.ID, "courierA"); err != nil {
			t.Fatalf("claim: %v", err)
		}
		if _, err := c.Cancel(ctx, o.ID, "student-01"); !errors.Is(err, orders.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})
}

// Invariant: courier id is set iff status is ACCEPTED or DELIVERED, checked
// after every transition in the lifecycle.
func TestCourierInvariant(t *testing.T) {
	ctx := context.Background()
	store := orders.NewMemStore()
	c := &Coordinator{Store: store}

	check := func(o orders.Order) {
		t.Helper()
		withCourier := o.Status == orders.StatusAccepted || o.Status == orders.StatusDelivered
		if withCourier && o.CourierID == "" {
			t.Errorf("status %s without courier", o.Status)
		}
		if !withCourier && o.CourierID != "" {
			t.Errorf("status %s with courier %q", o.Status, o.CourierID)
		}
	}

	o := newOrder(t, store)
	check(o)
	o, err := c.Claim(ctx, o.ID, "courierA")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	check(o)
	o, err = c.MarkDelivered(ctx, o.ID, "courierA")
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	check(o)

	cancelled := newOrder(t, store)
	cancelled, err = c.Cancel(ctx, cancelled.ID, "student-01")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	check(cancelled)
}
