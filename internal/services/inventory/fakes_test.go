package inventory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cafe-pos/internal/costing"
	"cafe-pos/internal/models"
)

type memStore struct {
	mu        sync.Mutex
	materials map[string]models.Material
	purchases []models.Purchase
	suppliers map[string]models.Supplier
	recipes   []models.RecipeEntry
}

func newMemStore() *memStore {
	return &memStore{
		materials: make(map[string]models.Material),
		suppliers: make(map[string]models.Supplier),
	}
}

func (m *memStore) ListMaterials(_ context.Context, query string) ([]models.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := strings.ToLower(query)
	var out []models.Material
	for _, mat := range m.materials {
		if q == "" || strings.Contains(strings.ToLower(mat.Name), q) || strings.Contains(strings.ToLower(mat.Category), q) {
			out = append(out, mat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) GetMaterial(_ context.Context, id string) (*models.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mat, ok := m.materials[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &mat, nil
}

func (m *memStore) CreateMaterial(_ context.Context, mat *models.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mat.UpdatedAt = time.Now()
	m.materials[mat.ID] = *mat
	return nil
}

func (m *memStore) UpdateMaterial(_ context.Context, mat *models.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.materials[mat.ID]; !ok {
		return models.ErrNotFound
	}
	m.materials[mat.ID] = *mat
	return nil
}

func (m *memStore) DeleteMaterial(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.materials[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.materials, id)
	return nil
}

func (m *memStore) AdjustStock(_ context.Context, id string, delta decimal.Decimal) (*models.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mat, ok := m.materials[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	mat = costing.AdjustStock(mat, delta)
	m.materials[id] = mat
	return &mat, nil
}

func (m *memStore) CreatePurchase(_ context.Context, p *models.Purchase) (*models.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated *models.Material
	if p.MaterialID != nil {
		mat, ok := m.materials[*p.MaterialID]
		if !ok {
			return nil, models.ErrNotFound
		}
		mat = costing.ApplyPurchase(mat, p.Quantity, p.PricePerUnit)
		m.materials[mat.ID] = mat
		if p.ItemName == "" {
			p.ItemName = mat.Name
		}
		updated = &mat
	}
	m.purchases = append(m.purchases, *p)
	return updated, nil
}

func (m *memStore) ListPurchases(context.Context) ([]models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.Purchase(nil), m.purchases...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PurchaseDate.After(out[j].PurchaseDate) })
	return out, nil
}

func (m *memStore) DeletePurchase(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.purchases {
		if p.ID == id {
			m.purchases = append(m.purchases[:i], m.purchases[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *memStore) ListSuppliers(_ context.Context, query string) ([]models.Supplier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Supplier
	for _, s := range m.suppliers {
		if query == "" || strings.Contains(strings.ToLower(s.SupplierName), strings.ToLower(query)) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) CreateSupplier(_ context.Context, s *models.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppliers[s.ID] = *s
	return nil
}

func (m *memStore) UpdateSupplier(_ context.Context, s *models.Supplier) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.suppliers[s.ID]; !ok {
		return models.ErrNotFound
	}
	m.suppliers[s.ID] = *s
	return nil
}

func (m *memStore) DeleteSupplier(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.suppliers[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.suppliers, id)
	return nil
}

func (m *memStore) ListRecipeEntries(_ context.Context, menuItemID string) ([]models.RecipeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.RecipeEntry
	for _, e := range m.recipes {
		if menuItemID == "" || e.MenuItemID == menuItemID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) UpsertRecipeEntry(_ context.Context, e *models.RecipeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.recipes {
		if existing.MenuItemID == e.MenuItemID && existing.MaterialID == e.MaterialID {
			e.ID = existing.ID
			m.recipes[i] = *e
			return nil
		}
	}
	m.recipes = append(m.recipes, *e)
	return nil
}

func (m *memStore) DeleteRecipeEntry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.recipes {
		if e.ID == id {
			m.recipes = append(m.recipes[:i], m.recipes[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

type fakeMenu struct {
	items []models.MenuItem
}

func (f *fakeMenu) ListMenu(context.Context) ([]models.MenuItem, error) {
	return f.items, nil
}

func (f *fakeMenu) GetMenuItem(_ context.Context, id string) (*models.MenuItem, error) {
	for _, item := range f.items {
		if item.ID == id {
			return &item, nil
		}
	}
	return nil, models.ErrNotFound
}
