package notify

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/campusrun/orders/internal/orders"
	"github.com/campusrun/orders/internal/redisx"
)

// Notifier joins the in-process Hub to a Redis pub/sub channel so that a
// snapshot published on any API instance reaches subscribers on every
// instance. With no Redis client it degrades to hub-only delivery, which is
// what tests and single-process runs use.
type Notifier struct {
	hub *Hub
	rdb *redis.Client
}

func New(rdb *redis.Client) *Notifier {
	return &Notifier{hub: NewHub(), rdb: rdb}
}

func (n *Notifier) SubscribeOrder(orderID string) *Subscription { return n.hub.SubscribeOrder(orderID) }
func (n *Notifier) SubscribePending() *Subscription             { return n.hub.SubscribePending() }

// Publish pushes one snapshot. With Redis configured the snapshot travels
// through the channel and comes back via Run, the same path remote
// instances see; without it the hub is fed directly.
func (n *Notifier) Publish(ctx context.Context, o orders.Order) {
	if n.rdb == nil {
		n.hub.Broadcast(o)
		return
	}
	b, err := json.Marshal(o)
	if err != nil {
		log.Printf("notify: marshal order %s: %v", o.ID, err)
		return
	}
	if err := n.rdb.Publish(ctx, redisx.ChannelOrderUpdates, b).Err(); err != nil {
		// Transport loss: deliver locally anyway. Remote subscribers recover
		// by refetching from the store, per the resync contract.
		log.Printf("notify: publish order %s: %v", o.ID, err)
		n.hub.Broadcast(o)
	}
}

// Run pumps the Redis channel into the local hub until ctx is done. Missed
// messages during a reconnect are not replayed; subscribers refetch via the
// store and resume.
func (n *Notifier) Run(ctx context.Context) error {
	if n.rdb == nil {
		<-ctx.Done()
		return nil
	}
	sub := n.rdb.Subscribe(ctx, redisx.ChannelOrderUpdates)
	defer func() { _ = sub.Close() }()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var o orders.Order
			if err := json.Unmarshal([]byte(m.Payload), &o); err != nil {
				log.Printf("notify: bad snapshot on %s: %v", m.Channel, err)
				continue
			}
			n.hub.Broadcast(o)
		}
	}
}
