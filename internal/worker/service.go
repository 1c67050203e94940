// Package worker consumes the lifecycle event log and keeps the Redis order
// snapshot cache warm, so tracking polls rarely touch Postgres.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/campusrun/orders/internal/kafka"
	"github.com/campusrun/orders/internal/orders"
	"github.com/campusrun/orders/internal/redisx"
)

type Service struct {
	Store       orders.Store
	Redis       *redis.Client
	ServiceName string
}

// HandleLifecycleEvent is the consumer handler. Consumption is at-least-once,
// so redeliveries are dropped via a dedup key before any work happens.
func (s *Service) HandleLifecycleEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if _, known := orders.StatusForEvent(env.EventType); !known {
		return nil // ignore event types added after this build
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	// Re-read the order rather than trusting the payload: the store is the
	// truth and a later transition may already have landed.
	o, err := s.Store.Get(ctx, env.CorrelationID)
	if err != nil {
		return err
	}

	key := fmt.Sprintf(redisx.KeyOrderSnapshot, o.ID)
	if err := s.Redis.Set(ctx, key, kafkax.MustMarshal(o), redisx.TTLSnapshotCache).Err(); err != nil {
		return err
	}

	log.Printf("order %s: %s, now %s", o.ID, env.EventType, o.Status)
	return nil
}
