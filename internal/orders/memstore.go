package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore keeps everything in process memory. It backs tests and
// single-process development; semantics match Repo, including the
// compare-and-set in ApplyTransition. Each order carries its own lock, so
// claims on different orders never contend.
type MemStore struct {
	mu       sync.RWMutex // guards the maps, not the orders
	orders   map[string]*memOrder
	products map[string]Product
}

type memOrder struct {
	mu sync.Mutex
	o  Order
}

var _ Store = (*MemStore)(nil)
var _ Catalog = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		orders:   make(map[string]*memOrder),
		products: make(map[string]Product),
	}
}

// SeedProducts loads catalog rows; missing timestamps are filled in.
func (s *MemStore) SeedProducts(ps ...Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range ps {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC()
			p.UpdatedAt = p.CreatedAt
		}
		s.products[p.ID] = p
	}
}

func (s *MemStore) Create(_ context.Context, o Order) (Order, error) {
	o.Status = StatusPending
	if err := ValidateNew(o); err != nil {
		return Order{}, err
	}

	o.ID = uuid.NewString()
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	o.Items = append([]OrderItem(nil), o.Items...)

	s.mu.Lock()
	s.orders[o.ID] = &memOrder{o: o}
	s.mu.Unlock()
	return o, nil
}

func (s *MemStore) Get(_ context.Context, id string) (Order, error) {
	e := s.lookup(id)
	if e == nil {
		return Order{}, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot(), nil
}

func (s *MemStore) ListPending(_ context.Context) ([]Order, error) {
	s.mu.RLock()
	entries := make([]*memOrder, 0, len(s.orders))
	for _, e := range s.orders {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var out []Order
	for _, e := range entries {
		e.mu.Lock()
		if e.o.Status == StatusPending {
			out = append(out, e.snapshot())
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemStore) ApplyTransition(_ context.Context, id string, expected, next Status, courierID string) (Order, error) {
	if err := CheckTransition(expected, next, courierID); err != nil {
		return Order{}, err
	}
	e := s.lookup(id)
	if e == nil {
		return Order{}, fmt.Errorf("%w: order %s", ErrNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.o.Status != expected {
		return Order{}, fmt.Errorf("%w: order %s is %s, expected %s", ErrConflict, id, e.o.Status, expected)
	}
	e.o.Status = next
	if courierID != "" {
		e.o.CourierID = courierID
	}
	e.o.UpdatedAt = time.Now().UTC()
	return e.snapshot(), nil
}

func (s *MemStore) lookup(id string) *memOrder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orders[id]
}

// snapshot copies the order so callers never alias store-owned state.
// Caller holds e.mu.
func (e *memOrder) snapshot() Order {
	o := e.o
	o.Items = append([]OrderItem(nil), e.o.Items...)
	return o
}

func (s *MemStore) ListProducts(_ context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemStore) GetProduct(_ context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: product %s", ErrNotFound, id)
	}
	return p, nil
}

func (s *MemStore) ProductsByID(_ context.Context, ids []string) (map[string]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
