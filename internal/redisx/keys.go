package redisx

import "time"

const (
	// Cached order snapshot: order_snapshot:{order_id} -> full Order JSON.
	KeyOrderSnapshot = "order_snapshot:%s"

	// Dedup for event consumers: dedup:{service}:{event_id}.
	KeyDedup = "dedup:%s:%s"

	// Pub/sub channel carrying order snapshots between API instances.
	ChannelOrderUpdates = "orders.updates"
)

var (
	TTLSnapshotCache = 5 * time.Minute
	TTLDedup         = 48 * time.Hour
)
