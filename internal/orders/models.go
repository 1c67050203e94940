package orders

import "time"

type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PriceCents int       `json:"price_cents"`
	ImageURL   string    `json:"image_url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// OrderItem is a snapshot of a catalog line at checkout time. Name and price
// are copied from the products table and never re-read for existing orders.
type OrderItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

type Order struct {
	ID               string      `json:"id"`
	CustomerID       string      `json:"customer_id"`
	CourierID        string      `json:"courier_id,omitempty"`
	Status           Status      `json:"status"`
	Items            []OrderItem `json:"items"`
	DeliveryAddress  string      `json:"delivery_address"`
	SubtotalCents    int         `json:"subtotal_cents"`
	DeliveryFeeCents int         `json:"delivery_fee_cents"`
	TotalCents       int         `json:"total_cents"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// ItemInput is the client's view of a cart line: product reference and
// quantity only. Prices always come from the catalog.
type ItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}
