package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/campusrun/orders/internal/claim"
	kafkax "github.com/campusrun/orders/internal/kafka"
	"github.com/campusrun/orders/internal/notify"
	"github.com/campusrun/orders/internal/orders"
	"github.com/campusrun/orders/internal/redisx"
)

// OrdersHandler is the lifecycle API façade. It validates input, delegates
// to the store and coordinator, and translates their errors onto status
// codes without renaming them. It holds no state of its own; Producer and
// Redis may be nil (single-process mode, tests).
type OrdersHandler struct {
	Store            orders.Store
	Catalog          orders.Catalog
	Claims           *claim.Coordinator
	Notifier         *notify.Notifier
	Producer         *kafkax.Producer
	Redis            *redis.Client
	Service          string
	DeliveryFeeCents int
}

type CreateOrderReq struct {
	CustomerID      string             `json:"customer_id"`
	DeliveryAddress string             `json:"delivery_address"`
	Items           []orders.ItemInput `json:"items"`
}

type courierReq struct {
	CourierID string `json:"courier_id"`
}

type customerReq struct {
	CustomerID string `json:"customer_id"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))

		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)

		r.Post("/orders", h.createOrder)
		r.Get("/orders/{id}", h.getOrder)
		r.Post("/orders/{id}/cancel", h.cancelOrder)

		r.Get("/jobs", h.listPendingJobs)
		r.Post("/jobs/{id}/claim", h.claimJob)
		r.Post("/jobs/{id}/delivered", h.markDelivered)
	})

	// Long-lived streams sit outside the timeout group.
	r.Get("/orders/{id}/stream", h.streamOrder)
	r.Get("/jobs/stream", h.streamPendingJobs)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the taxonomy 1:1. Anything outside it is treated as the
// store being unreachable, which the client may retry with backoff.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, orders.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": "temporarily unavailable", "retry": true,
		})
	}
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.buildOrder(ctx, req)
	if err != nil {
		writeError(w, err)
		return
	}
	o, err = h.Store.Create(ctx, o)
	if err != nil {
		writeError(w, err)
		return
	}

	h.afterWrite(ctx, o, orders.EventOrderCreated, orders.OrderCreatedPayload{
		OrderID:          o.ID,
		CustomerID:       o.CustomerID,
		Items:            o.Items,
		DeliveryAddress:  o.DeliveryAddress,
		SubtotalCents:    o.SubtotalCents,
		DeliveryFeeCents: o.DeliveryFeeCents,
		TotalCents:       o.TotalCents,
	}, r.Header.Get("X-Request-Id"))

	writeJSON(w, http.StatusCreated, o)
}

// buildOrder prices the cart from the catalog snapshot. Client-sent prices
// are never trusted; unit price and name are copied into the order here and
// never re-read from the catalog afterwards.
func (h *OrdersHandler) buildOrder(ctx context.Context, req CreateOrderReq) (orders.Order, error) {
	if len(req.Items) == 0 {
		return orders.Order{}, fmt.Errorf("%w: order has no items", orders.ErrValidation)
	}
	ids := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := h.Catalog.ProductsByID(ctx, ids)
	if err != nil {
		return orders.Order{}, err
	}

	o := orders.Order{
		CustomerID:       req.CustomerID,
		DeliveryAddress:  req.DeliveryAddress,
		DeliveryFeeCents: h.DeliveryFeeCents,
	}
	for _, it := range req.Items {
		p, ok := products[it.ProductID]
		if !ok {
			return orders.Order{}, fmt.Errorf("%w: unknown product %s", orders.ErrValidation, it.ProductID)
		}
		if it.Qty <= 0 {
			return orders.Order{}, fmt.Errorf("%w: invalid qty for product %s", orders.ErrValidation, it.ProductID)
		}
		o.Items = append(o.Items, orders.OrderItem{
			ProductID:  p.ID,
			Name:       p.Name,
			Qty:        it.Qty,
			PriceCents: p.PriceCents,
		})
		o.SubtotalCents += p.PriceCents * it.Qty
	}
	o.TotalCents = o.SubtotalCents + o.DeliveryFeeCents
	return o, nil
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// Hot tracking polls are served from cache; the store stays the truth.
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderSnapshot, orderID)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	o, err := h.Store.Get(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheSnapshot(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listPendingJobs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Store.ListPending(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) claimJob(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req courierReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Claims.Claim(ctx, orderID, req.CourierID)
	if errors.Is(err, orders.ErrConflict) {
		// Not a failure to retry: another courier won, drop the job locally.
		writeJSON(w, http.StatusConflict, map[string]string{"error": "job no longer available"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	h.afterWrite(ctx, o, orders.EventOrderClaimed,
		orders.OrderClaimedPayload{OrderID: o.ID, CourierID: o.CourierID},
		r.Header.Get("X-Request-Id"))
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) markDelivered(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req courierReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Claims.MarkDelivered(ctx, orderID, req.CourierID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.afterWrite(ctx, o, orders.EventOrderDelivered,
		orders.OrderDeliveredPayload{OrderID: o.ID, CourierID: o.CourierID},
		r.Header.Get("X-Request-Id"))
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req customerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Claims.Cancel(ctx, orderID, req.CustomerID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.afterWrite(ctx, o, orders.EventOrderCancelled,
		orders.OrderCancelledPayload{OrderID: o.ID, CustomerID: o.CustomerID},
		r.Header.Get("X-Request-Id"))
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.ListProducts(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if ps == nil {
		ps = []orders.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *OrdersHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// afterWrite runs the fan-out that follows every successful write: snapshot
// to subscribers, cache refresh, and a lifecycle event on the log. The
// write itself already committed; none of these can fail it.
func (h *OrdersHandler) afterWrite(ctx context.Context, o orders.Order, eventType string, payload any, traceID string) {
	h.Notifier.Publish(ctx, o)
	h.cacheSnapshot(ctx, o)

	if h.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       traceID,
		CorrelationID: o.ID,
		Payload:       kafkax.MustMarshal(payload),
	}
	h.Producer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) cacheSnapshot(ctx context.Context, o orders.Order) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderSnapshot, o.ID)
	_ = h.Redis.Set(ctx, key, kafkax.MustMarshal(o), redisx.TTLSnapshotCache).Err()
}
