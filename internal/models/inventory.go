package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material is a raw ingredient or supply tracked by the back office.
type Material struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	Unit              string          `json:"unit"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	StockQuantity     decimal.Decimal `json:"stock_quantity"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Purchase records a stock purchase. MaterialID is nil for ad-hoc buys.
type Purchase struct {
	ID           string          `json:"id"`
	MaterialID   *string         `json:"material_id,omitempty"`
	ItemName     string          `json:"item_name"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	PurchaseDate time.Time       `json:"purchase_date"`
}

// RecipeEntry joins a menu item to the material it uses per serving.
type RecipeEntry struct {
	ID           string          `json:"id"`
	MenuItemID   string          `json:"menu_item_id"`
	MaterialID   string          `json:"material_id"`
	QuantityUsed decimal.Decimal `json:"quantity_used"`
}

// Supplier is a directory record.
type Supplier struct {
	ID           string    `json:"id"`
	ItemName     string    `json:"item_name"`
	Category     string    `json:"category"`
	SupplierName string    `json:"supplier_name"`
	Contact      string    `json:"contact"`
	UpdatedAt    time.Time `json:"updated_at"`
}
