// Package notify pushes order snapshots to tracking views and courier
// dashboards. Delivery is at-least-once and ordered per order; a subscriber
// that falls behind loses the oldest buffered snapshot, never the stream.
package notify

import (
	"sync"

	"github.com/campusrun/orders/internal/orders"
)

const defaultBuffer = 16

// Subscription is a lazy, non-restartable stream of order snapshots. It ends
// only when the subscriber calls Close; missed snapshots are not replayed,
// the subscriber refetches from the store instead.
type Subscription struct {
	ch   chan orders.Order
	stop func()
	once sync.Once
}

func (s *Subscription) Updates() <-chan orders.Order { return s.ch }

// Close detaches the subscription and closes Updates.
func (s *Subscription) Close() { s.once.Do(s.stop) }

// Hub fans out snapshots in-process. Each subscriber owns a bounded buffer;
// on overflow the oldest buffered snapshot is dropped so a slow tracking
// view never blocks delivery to anyone else.
type Hub struct {
	mu      sync.Mutex
	byOrder map[string]map[*Subscription]struct{}
	pending map[*Subscription]struct{}
	buffer  int
}

func NewHub() *Hub {
	return &Hub{
		byOrder: make(map[string]map[*Subscription]struct{}),
		pending: make(map[*Subscription]struct{}),
		buffer:  defaultBuffer,
	}
}

// SubscribeOrder streams every state change of one order.
func (h *Hub) SubscribeOrder(orderID string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{ch: make(chan orders.Order, h.buffer)}
	set, ok := h.byOrder[orderID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.byOrder[orderID] = set
	}
	set[sub] = struct{}{}
	sub.stop = func() { h.dropOrderSub(orderID, sub) }
	return sub
}

// SubscribePending streams newly created PENDING orders for job dashboards.
func (h *Hub) SubscribePending() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{ch: make(chan orders.Order, h.buffer)}
	h.pending[sub] = struct{}{}
	sub.stop = func() { h.dropPendingSub(sub) }
	return sub
}

// Broadcast routes one snapshot: always to the order's own subscribers, and
// to pending subscribers when the snapshot is a fresh PENDING order (the
// only time that status is ever observed).
func (h *Hub) Broadcast(o orders.Order) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.byOrder[o.ID] {
		send(sub.ch, o)
	}
	if o.Status == orders.StatusPending {
		for sub := range h.pending {
			send(sub.ch, o)
		}
	}
}

// send never blocks: if the buffer is full, the oldest snapshot gives way.
// Only Broadcast sends, under h.mu, so after one receive there is room.
func send(ch chan orders.Order, o orders.Order) {
	select {
	case ch <- o:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- o:
	default:
	}
}

func (h *Hub) dropOrderSub(orderID string, sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.byOrder[orderID]
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.byOrder, orderID)
	}
	close(sub.ch)
}

func (h *Hub) dropPendingSub(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.pending[sub]; !ok {
		return
	}
	delete(h.pending, sub)
	close(sub.ch)
}
