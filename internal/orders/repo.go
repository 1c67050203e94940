package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres-backed Store and Catalog. The conditional UPDATE in
// ApplyTransition is the only mutation path for existing orders.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)
var _ Catalog = (*Repo)(nil)

const orderColumns = `id, customer_id, COALESCE(courier_id, ''), status, delivery_address,
	subtotal_cents, delivery_fee_cents, total_cents, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.CourierID, &o.Status, &o.DeliveryAddress,
		&o.SubtotalCents, &o.DeliveryFeeCents, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *Repo) Create(ctx context.Context, o Order) (Order, error) {
	o.Status = StatusPending
	if err := ValidateNew(o); err != nil {
		return Order{}, err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o.ID = uuid.NewString()
	row := tx.QueryRow(ctx, `
		INSERT INTO orders(id, customer_id, status, delivery_address,
		                   subtotal_cents, delivery_fee_cents, total_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		o.ID, o.CustomerID, o.Status, o.DeliveryAddress,
		o.SubtotalCents, o.DeliveryFeeCents, o.TotalCents)
	if err := row.Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return Order{}, err
	}

	for _, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, name, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, it.ProductID, it.Name, it.Qty, it.PriceCents); err != nil {
			return Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	if err != nil {
		return Order{}, err
	}
	items, err := r.itemsFor(ctx, []string{id})
	if err != nil {
		return Order{}, err
	}
	o.Items = items[id]
	return o, nil
}

func (r *Repo) ListPending(ctx context.Context) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+`
		FROM orders WHERE status=$1 ORDER BY created_at DESC`, StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	var ids []string
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
	}
	return out, nil
}

// ApplyTransition is the compare-and-set: the WHERE clause re-checks the
// expected status inside the UPDATE, so of N concurrent callers exactly one
// sees a matched row and the rest observe zero rows affected.
func (r *Repo) ApplyTransition(ctx context.Context, id string, expected, next Status, courierID string) (Order, error) {
	if err := CheckTransition(expected, next, courierID); err != nil {
		return Order{}, err
	}

	row := r.DB.QueryRow(ctx, `
		UPDATE orders
		SET status=$3, courier_id = COALESCE(NULLIF($4, ''), courier_id), updated_at = now()
		WHERE id=$1 AND status=$2
		RETURNING `+orderColumns, id, expected, next, courierID)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race or the order never existed; look once to tell which.
		var current Status
		lookupErr := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, id).Scan(&current)
		if errors.Is(lookupErr, pgx.ErrNoRows) {
			return Order{}, fmt.Errorf("%w: order %s", ErrNotFound, id)
		}
		if lookupErr != nil {
			return Order{}, lookupErr
		}
		return Order{}, fmt.Errorf("%w: order %s is %s, expected %s", ErrConflict, id, current, expected)
	}
	if err != nil {
		return Order{}, err
	}

	items, err := r.itemsFor(ctx, []string{id})
	if err != nil {
		return Order{}, err
	}
	o.Items = items[id]
	return o, nil
}

func (r *Repo) itemsFor(ctx context.Context, orderIDs []string) (map[string][]OrderItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, name, qty, price_cents
		FROM order_items WHERE order_id = ANY($1)`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]OrderItem, len(orderIDs))
	for rows.Next() {
		var orderID string
		var it OrderItem
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Qty, &it.PriceCents); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, price_cents, image_url, created_at, updated_at
		FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `SELECT id, name, price_cents, image_url, created_at, updated_at
		FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.PriceCents, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: product %s", ErrNotFound, id)
	}
	return p, err
}

func (r *Repo) ProductsByID(ctx context.Context, ids []string) (map[string]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, price_cents, image_url, created_at, updated_at
		FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Product, len(ids))
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}
