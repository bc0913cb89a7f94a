package order

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cafe-pos/internal/lifecycle"
	"cafe-pos/internal/models"
)

// memStore is an in-memory Store for service and handler tests.
type memStore struct {
	mu       sync.Mutex
	orders   map[string]*models.Order
	history  map[string][]models.OrderStatusHistory
	lastSeen map[string]time.Time
	stock    map[string]int
	err      error
}

func newMemStore() *memStore {
	return &memStore{
		orders:   make(map[string]*models.Order),
		history:  make(map[string][]models.OrderStatusHistory),
		lastSeen: make(map[string]time.Time),
		stock:    make(map[string]int),
	}
}

func (m *memStore) CreateOrder(_ context.Context, o *models.Order, sessionID string, window time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}

	key := "contact:" + o.ContactNumber
	if o.ContactNumber == "" {
		if sessionID == "" {
			return models.ErrMissingIdentifiers
		}
		key = "session:" + sessionID
	}
	if last, ok := m.lastSeen[key]; ok && time.Since(last) < window {
		return models.ErrRateLimited
	}
	for _, item := range o.Items {
		if stock, tracked := m.stock[item.MenuItemID]; tracked {
			if stock < item.Quantity {
				return &models.StockError{Item: item.Name, Requested: item.Quantity, Available: stock}
			}
			m.stock[item.MenuItemID] = stock - item.Quantity
		}
	}

	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	m.lastSeen[key] = o.CreatedAt
	stored := *o
	m.orders[o.ID] = &stored
	m.history[o.ID] = []models.OrderStatusHistory{{Status: o.Status, ChangedBy: "storefront", ChangedAt: o.CreatedAt}}
	return nil
}

func (m *memStore) UpdateStatus(_ context.Context, id string, actor lifecycle.Actor, to models.OrderStatus, changedBy string) (models.OrderStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return "", models.ErrNotFound
	}
	from := o.Status.Normalize()
	next, err := lifecycle.Transition(actor, from, to)
	if err != nil {
		return "", err
	}
	o.Status = next
	m.history[id] = append(m.history[id], models.OrderStatusHistory{Status: next, ChangedBy: changedBy, ChangedAt: time.Now()})
	return from, nil
}

func (m *memStore) Get(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memStore) List(_ context.Context, from, to *time.Time) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Order
	for _, o := range m.orders {
		if from != nil && o.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && o.CreatedAt.After(*to) {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (m *memStore) ListByStatus(_ context.Context, statuses ...models.OrderStatus) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		for _, s := range statuses {
			if o.Status.Normalize() == s {
				out = append(out, *o)
			}
		}
	}
	return out, nil
}

func (m *memStore) History(_ context.Context, id string) ([]models.OrderStatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.history[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return h, nil
}

func (m *memStore) CountPendingSince(_ context.Context, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.orders {
		if o.Status.Normalize() == models.StatusPending && !o.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// put stores an order directly, bypassing creation rules.
func (m *memStore) put(o models.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = &o
}

type fakePublisher struct {
	mu       sync.Mutex
	orders   []*models.OrderMessage
	statuses []*models.StatusUpdateMessage
	err      error
}

func (p *fakePublisher) PublishOrder(_ context.Context, msg *models.OrderMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, msg)
	return p.err
}

func (p *fakePublisher) PublishStatusUpdate(_ context.Context, msg *models.StatusUpdateMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, msg)
	return p.err
}

const (
	latteID   = "0d4b7c1e-5a2f-4e39-8c61-3f2a1b0c9d01"
	pastryID  = "0d4b7c1e-5a2f-4e39-8c61-3f2a1b0c9d02"
	unknownID = "0d4b7c1e-5a2f-4e39-8c61-3f2a1b0c9dff"
)

// fakeMenu serves a latte at 120 with an oat milk add-on, and a pastry that
// is off the menu.
type fakeMenu struct{}

func (fakeMenu) GetMenuItem(_ context.Context, id string) (*models.MenuItem, error) {
	switch id {
	case latteID:
		return &models.MenuItem{
			ID:        latteID,
			Name:      "Latte",
			BasePrice: decimal.NewFromInt(120),
			Available: true,
			AddOns:    []models.AddOn{{ID: "oat", Name: "Oat Milk", Price: decimal.NewFromInt(25)}},
		}, nil
	case pastryID:
		return &models.MenuItem{ID: pastryID, Name: "Ensaymada", BasePrice: decimal.NewFromInt(60)}, nil
	}
	return nil, models.ErrNotFound
}
