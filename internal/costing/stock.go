package costing

import (
	"github.com/shopspring/decimal"

	"cafe-pos/internal/models"
)

type StockLevel string

const (
	OutOfStock StockLevel = "out_of_stock"
	LowStock   StockLevel = "low_stock"
	InStock    StockLevel = "in_stock"
)

// StockStatus classifies a material against its low-stock threshold.
func StockStatus(m models.Material) StockLevel {
	switch {
	case m.StockQuantity.LessThanOrEqual(decimal.Zero):
		return OutOfStock
	case m.StockQuantity.LessThanOrEqual(m.LowStockThreshold):
		return LowStock
	default:
		return InStock
	}
}

// AdjustStock applies delta and clamps the result at zero.
func AdjustStock(m models.Material, delta decimal.Decimal) models.Material {
	m.StockQuantity = m.StockQuantity.Add(delta)
	if m.StockQuantity.IsNegative() {
		m.StockQuantity = decimal.Zero
	}
	return m
}

// InventorySummary is the back-office dashboard header.
type InventorySummary struct {
	TotalMaterials  int             `json:"total_materials"`
	TotalStockValue decimal.Decimal `json:"total_stock_value"`
	LowStockCount   int             `json:"low_stock_count"`
	OutOfStockCount int             `json:"out_of_stock_count"`
	TotalPurchases  int             `json:"total_purchases"`
	TotalPaid       decimal.Decimal `json:"total_paid"`
}

func Summary(materials []models.Material, purchases []models.Purchase) InventorySummary {
	s := InventorySummary{
		TotalMaterials:  len(materials),
		TotalStockValue: decimal.Zero,
		TotalPurchases:  len(purchases),
		TotalPaid:       decimal.Zero,
	}
	for _, m := range materials {
		s.TotalStockValue = s.TotalStockValue.Add(m.StockQuantity.Mul(m.UnitCost))
		switch StockStatus(m) {
		case OutOfStock:
			s.OutOfStockCount++
		case LowStock:
			s.LowStockCount++
		}
	}
	for _, p := range purchases {
		s.TotalPaid = s.TotalPaid.Add(p.TotalPaid)
	}
	return s
}
