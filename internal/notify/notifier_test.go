package notify

import (
	"context"
	"testing"

	"github.com/campusrun/orders/internal/orders"
)

// Without Redis the notifier feeds the hub directly; same contract, one
// process.
func TestNotifierLocalMode(t *testing.T) {
	n := New(nil)
	sub := n.SubscribeOrder("o1")
	defer sub.Close()
	pending := n.SubscribePending()
	defer pending.Close()

	n.Publish(context.Background(), orders.Order{ID: "o1", Status: orders.StatusPending})

	if got := recv(t, sub); got.ID != "o1" {
		t.Errorf("order subscriber missed snapshot: %+v", got)
	}
	if got := recv(t, pending); got.ID != "o1" {
		t.Errorf("pending subscriber missed snapshot: %+v", got)
	}
}
