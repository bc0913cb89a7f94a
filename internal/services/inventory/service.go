package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cafe-pos/internal/costing"
	"cafe-pos/internal/logger"
	"cafe-pos/internal/models"
)

// Store is the persistence the back office needs.
type Store interface {
	ListMaterials(ctx context.Context, query string) ([]models.Material, error)
	GetMaterial(ctx context.Context, id string) (*models.Material, error)
	CreateMaterial(ctx context.Context, m *models.Material) error
	UpdateMaterial(ctx context.Context, m *models.Material) error
	DeleteMaterial(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id string, delta decimal.Decimal) (*models.Material, error)

	CreatePurchase(ctx context.Context, p *models.Purchase) (*models.Material, error)
	ListPurchases(ctx context.Context) ([]models.Purchase, error)
	DeletePurchase(ctx context.Context, id string) error

	ListSuppliers(ctx context.Context, query string) ([]models.Supplier, error)
	CreateSupplier(ctx context.Context, s *models.Supplier) error
	UpdateSupplier(ctx context.Context, s *models.Supplier) error
	DeleteSupplier(ctx context.Context, id string) error

	ListRecipeEntries(ctx context.Context, menuItemID string) ([]models.RecipeEntry, error)
	UpsertRecipeEntry(ctx context.Context, e *models.RecipeEntry) error
	DeleteRecipeEntry(ctx context.Context, id string) error
}

// MenuReader supplies the menu items that costing reports on.
type MenuReader interface {
	ListMenu(ctx context.Context) ([]models.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error)
}

// Service implements the back-office operations.
type Service struct {
	store  Store
	menu   MenuReader
	logger *logger.Logger
	now    func() time.Time
}

func NewService(store Store, menu MenuReader, log *logger.Logger) *Service {
	return &Service{store: store, menu: menu, logger: log, now: time.Now}
}

// MaterialInput is the editable part of a material.
type MaterialInput struct {
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	Unit              string          `json:"unit"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	StockQuantity     decimal.Decimal `json:"stock_quantity"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
}

func (in MaterialInput) validate() error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return models.ValidationError{Field: "name", Message: "material name is required"}
	case in.UnitCost.IsNegative():
		return models.ValidationError{Field: "unit_cost", Message: "unit cost cannot be negative"}
	case in.StockQuantity.IsNegative():
		return models.ValidationError{Field: "stock_quantity", Message: "stock quantity cannot be negative"}
	case in.LowStockThreshold.IsNegative():
		return models.ValidationError{Field: "low_stock_threshold", Message: "low stock threshold cannot be negative"}
	}
	return nil
}

func (in MaterialInput) apply(m *models.Material) {
	m.Name = strings.TrimSpace(in.Name)
	m.Category = strings.TrimSpace(in.Category)
	m.Unit = strings.TrimSpace(in.Unit)
	m.UnitCost = in.UnitCost
	m.StockQuantity = in.StockQuantity
	m.LowStockThreshold = in.LowStockThreshold
}

// MaterialView is a material with its stock level.
type MaterialView struct {
	models.Material
	Status costing.StockLevel `json:"status"`
}

func newMaterialView(m models.Material) MaterialView {
	return MaterialView{Material: m, Status: costing.StockStatus(m)}
}

// ListMaterials searches by name or category; an empty query lists all.
func (s *Service) ListMaterials(ctx context.Context, query string) ([]MaterialView, error) {
	materials, err := s.store.ListMaterials(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, err
	}
	views := make([]MaterialView, len(materials))
	for i, m := range materials {
		views[i] = newMaterialView(m)
	}
	return views, nil
}

func (s *Service) CreateMaterial(ctx context.Context, in MaterialInput, requestID string) (*MaterialView, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	m := models.Material{ID: uuid.NewString()}
	in.apply(&m)
	if err := s.store.CreateMaterial(ctx, &m); err != nil {
		return nil, err
	}
	s.logger.Info("material_created", "Material added", requestID, map[string]interface{}{
		"material_id": m.ID,
		"name":        m.Name,
	})
	view := newMaterialView(m)
	return &view, nil
}

func (s *Service) UpdateMaterial(ctx context.Context, id string, in MaterialInput) (*MaterialView, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	m := models.Material{ID: id}
	in.apply(&m)
	if err := s.store.UpdateMaterial(ctx, &m); err != nil {
		return nil, err
	}
	view := newMaterialView(m)
	return &view, nil
}

func (s *Service) DeleteMaterial(ctx context.Context, id, requestID string) error {
	if err := s.store.DeleteMaterial(ctx, id); err != nil {
		return err
	}
	s.logger.Info("material_deleted", "Material removed", requestID, map[string]interface{}{"material_id": id})
	return nil
}

// AdjustStock changes stock by delta, never below zero.
func (s *Service) AdjustStock(ctx context.Context, id string, delta decimal.Decimal, requestID string) (*MaterialView, error) {
	if delta.IsZero() {
		return nil, models.ValidationError{Field: "delta", Message: "adjustment cannot be zero"}
	}
	m, err := s.store.AdjustStock(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	s.logger.Info("stock_adjusted", "Material stock adjusted", requestID, map[string]interface{}{
		"material_id": id,
		"delta":       delta.String(),
		"stock":       m.StockQuantity.String(),
	})
	view := newMaterialView(*m)
	return &view, nil
}

// PurchaseInput records a purchase. MaterialID links it to stock; without it
// ItemName is required.
type PurchaseInput struct {
	MaterialID   *string         `json:"material_id,omitempty"`
	ItemName     string          `json:"item_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	PurchaseDate *time.Time      `json:"purchase_date,omitempty"`
}

// PurchaseResult is the stored purchase and the material it restocked.
type PurchaseResult struct {
	Purchase models.Purchase `json:"purchase"`
	Material *MaterialView   `json:"material,omitempty"`
}

func (s *Service) CreatePurchase(ctx context.Context, in PurchaseInput, requestID string) (*PurchaseResult, error) {
	if in.MaterialID != nil && strings.TrimSpace(*in.MaterialID) == "" {
		in.MaterialID = nil
	}
	switch {
	case in.MaterialID == nil && strings.TrimSpace(in.ItemName) == "":
		return nil, models.ValidationError{Field: "item_name", Message: "item name is required"}
	case !in.Quantity.IsPositive():
		return nil, models.ValidationError{Field: "quantity", Message: "quantity must be greater than 0"}
	case in.PricePerUnit.IsNegative():
		return nil, models.ValidationError{Field: "price_per_unit", Message: "price per unit cannot be negative"}
	}

	p := models.Purchase{
		ID:           uuid.NewString(),
		MaterialID:   in.MaterialID,
		ItemName:     strings.TrimSpace(in.ItemName),
		Quantity:     in.Quantity,
		PricePerUnit: in.PricePerUnit,
		TotalPaid:    costing.TotalPaid(in.Quantity, in.PricePerUnit),
		PurchaseDate: s.now().UTC(),
	}
	if in.PurchaseDate != nil {
		p.PurchaseDate = *in.PurchaseDate
	}

	m, err := s.store.CreatePurchase(ctx, &p)
	if err != nil {
		return nil, err
	}

	result := &PurchaseResult{Purchase: p}
	if m != nil {
		view := newMaterialView(*m)
		result.Material = &view
	}
	s.logger.Info("purchase_recorded", "Purchase recorded", requestID, map[string]interface{}{
		"purchase_id": p.ID,
		"item_name":   p.ItemName,
		"quantity":    p.Quantity.String(),
		"total_paid":  p.TotalPaid.StringFixed(2),
	})
	return result, nil
}

func (s *Service) ListPurchases(ctx context.Context) ([]models.Purchase, error) {
	return s.store.ListPurchases(ctx)
}

func (s *Service) DeletePurchase(ctx context.Context, id string) error {
	return s.store.DeletePurchase(ctx, id)
}

// SupplierInput is the editable part of a supplier.
type SupplierInput struct {
	ItemName     string `json:"item_name"`
	Category     string `json:"category"`
	SupplierName string `json:"supplier_name"`
	Contact      string `json:"contact"`
}

func (in SupplierInput) toSupplier(id string) (models.Supplier, error) {
	sup := models.Supplier{
		ID:           id,
		ItemName:     strings.TrimSpace(in.ItemName),
		Category:     strings.TrimSpace(in.Category),
		SupplierName: strings.TrimSpace(in.SupplierName),
		Contact:      strings.TrimSpace(in.Contact),
	}
	if sup.ItemName == "" {
		return sup, models.ValidationError{Field: "item_name", Message: "item name is required"}
	}
	if sup.SupplierName == "" {
		return sup, models.ValidationError{Field: "supplier_name", Message: "supplier name is required"}
	}
	return sup, nil
}

func (s *Service) ListSuppliers(ctx context.Context, query string) ([]models.Supplier, error) {
	return s.store.ListSuppliers(ctx, strings.TrimSpace(query))
}

func (s *Service) CreateSupplier(ctx context.Context, in SupplierInput) (*models.Supplier, error) {
	sup, err := in.toSupplier(uuid.NewString())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateSupplier(ctx, &sup); err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id string, in SupplierInput) (*models.Supplier, error) {
	sup, err := in.toSupplier(id)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateSupplier(ctx, &sup); err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, id string) error {
	return s.store.DeleteSupplier(ctx, id)
}

// RecipeInput sets how much of a material one serving uses.
type RecipeInput struct {
	MenuItemID   string          `json:"menu_item_id"`
	MaterialID   string          `json:"material_id"`
	QuantityUsed decimal.Decimal `json:"quantity_used"`
}

func (s *Service) ListRecipe(ctx context.Context, menuItemID string) ([]models.RecipeEntry, error) {
	return s.store.ListRecipeEntries(ctx, strings.TrimSpace(menuItemID))
}

func (s *Service) SetRecipeEntry(ctx context.Context, in RecipeInput) (*models.RecipeEntry, error) {
	switch {
	case in.MenuItemID == "":
		return nil, models.ValidationError{Field: "menu_item_id", Message: "menu item is required"}
	case in.MaterialID == "":
		return nil, models.ValidationError{Field: "material_id", Message: "material is required"}
	case !in.QuantityUsed.IsPositive():
		return nil, models.ValidationError{Field: "quantity_used", Message: "quantity used must be greater than 0"}
	}
	if _, err := s.menu.GetMenuItem(ctx, in.MenuItemID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetMaterial(ctx, in.MaterialID); err != nil {
		return nil, err
	}
	e := models.RecipeEntry{
		ID:           uuid.NewString(),
		MenuItemID:   in.MenuItemID,
		MaterialID:   in.MaterialID,
		QuantityUsed: in.QuantityUsed,
	}
	if err := s.store.UpsertRecipeEntry(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Service) DeleteRecipeEntry(ctx context.Context, id string) error {
	return s.store.DeleteRecipeEntry(ctx, id)
}

// Costing reports the cost and margin of one menu item.
func (s *Service) Costing(ctx context.Context, menuItemID string) (*costing.ItemCost, error) {
	item, err := s.menu.GetMenuItem(ctx, menuItemID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListRecipeEntries(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	materials, err := s.store.ListMaterials(ctx, "")
	if err != nil {
		return nil, err
	}
	report := costing.Report(*item, entries, costing.IndexMaterials(materials))
	return &report, nil
}

// CostingAll reports every menu item.
func (s *Service) CostingAll(ctx context.Context) ([]costing.ItemCost, error) {
	items, err := s.menu.ListMenu(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load menu: %w", err)
	}
	entries, err := s.store.ListRecipeEntries(ctx, "")
	if err != nil {
		return nil, err
	}
	materials, err := s.store.ListMaterials(ctx, "")
	if err != nil {
		return nil, err
	}
	return costing.ReportAll(items, entries, materials), nil
}

func (s *Service) Summary(ctx context.Context) (costing.InventorySummary, error) {
	materials, err := s.store.ListMaterials(ctx, "")
	if err != nil {
		return costing.InventorySummary{}, err
	}
	purchases, err := s.store.ListPurchases(ctx)
	if err != nil {
		return costing.InventorySummary{}, err
	}
	return costing.Summary(materials, purchases), nil
}
