package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem is a storefront product. Read-only to the storefront.
type MenuItem struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	Category          string           `json:"category"`
	BasePrice         decimal.Decimal  `json:"base_price"`
	DiscountPrice     *decimal.Decimal `json:"discount_price,omitempty"`
	IsOnDiscount      bool             `json:"is_on_discount"`
	EffectivePrice    *decimal.Decimal `json:"effective_price,omitempty"`
	Available         bool             `json:"available"`
	Popular           bool             `json:"popular"`
	TrackInventory    bool             `json:"track_inventory"`
	StockQuantity     int              `json:"stock_quantity"`
	LowStockThreshold int              `json:"low_stock_threshold"`
	ImageURL          string           `json:"image_url,omitempty"`
	Variations        []Variation      `json:"variations"`
	AddOns            []AddOn          `json:"add_ons"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// Variation carries the absolute price of the item at that size.
type Variation struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// AddOn is an optional extra; a zero price means free.
type AddOn struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
}

// AddOnSelection is an add-on chosen with a repeat count.
type AddOnSelection struct {
	AddOn AddOn `json:"add_on"`
	Count int   `json:"count"`
}

// FindVariation returns the variation with the given id.
func (m *MenuItem) FindVariation(id string) (Variation, bool) {
	for _, v := range m.Variations {
		if v.ID == id {
			return v, true
		}
	}
	return Variation{}, false
}

// FindAddOn returns the add-on with the given id.
func (m *MenuItem) FindAddOn(id string) (AddOn, bool) {
	for _, a := range m.AddOns {
		if a.ID == id {
			return a, true
		}
	}
	return AddOn{}, false
}

// LowOnStock reports whether a tracked item is at or under its threshold.
func (m *MenuItem) LowOnStock() bool {
	return m.TrackInventory && m.StockQuantity <= m.LowStockThreshold
}
