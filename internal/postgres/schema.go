package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Idempotent DDL applied at startup. courier_id stays NULL until a claim
// wins; the partial index serves the runner dashboard's newest-first feed.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		price_cents INT  NOT NULL CHECK (price_cents >= 0),
		image_url   TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                 TEXT PRIMARY KEY,
		customer_id        TEXT NOT NULL,
		courier_id         TEXT,
		status             TEXT NOT NULL,
		delivery_address   TEXT NOT NULL,
		subtotal_cents     INT  NOT NULL,
		delivery_fee_cents INT  NOT NULL,
		total_cents        INT  NOT NULL CHECK (total_cents = subtotal_cents + delivery_fee_cents),
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id    TEXT NOT NULL REFERENCES orders(id),
		product_id  TEXT NOT NULL,
		name        TEXT NOT NULL,
		qty         INT  NOT NULL CHECK (qty > 0),
		price_cents INT  NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_pending
		ON orders (created_at DESC) WHERE status = 'PENDING'`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id)`,
}

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
