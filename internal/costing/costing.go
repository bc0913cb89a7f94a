// Package costing derives per-serving ingredient cost and margin for menu
// items. It is read-only: nothing here touches stock.
package costing

import (
	"sort"

	"github.com/shopspring/decimal"

	"cafe-pos/internal/models"
)

var hundred = decimal.NewFromInt(100)

// ItemCost is the costing report row for one menu item.
type ItemCost struct {
	MenuItemID       string           `json:"menu_item_id"`
	Name             string           `json:"name"`
	BasePrice        decimal.Decimal  `json:"base_price"`
	CostPerServing   decimal.Decimal  `json:"cost_per_serving"`
	Margin           decimal.Decimal  `json:"margin"`
	MarginPercent    *decimal.Decimal `json:"margin_percent,omitempty"`
	Ingredients      []Ingredient     `json:"ingredients"`
	MissingMaterials []string         `json:"missing_materials,omitempty"`
}

// Ingredient is one recipe line with its resolved cost.
type Ingredient struct {
	MaterialID   string          `json:"material_id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	QuantityUsed decimal.Decimal `json:"quantity_used"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Cost         decimal.Decimal `json:"cost"`
}

// CostPerServing is Σ unit cost × quantity used. Entries whose material is
// unknown contribute zero; their ids are returned.
func CostPerServing(entries []models.RecipeEntry, materials map[string]models.Material) (decimal.Decimal, []string) {
	total := decimal.Zero
	var missing []string
	for _, e := range entries {
		m, ok := materials[e.MaterialID]
		if !ok {
			missing = append(missing, e.MaterialID)
			continue
		}
		total = total.Add(m.UnitCost.Mul(e.QuantityUsed))
	}
	return total, missing
}

// Margin is base price minus cost per serving.
func Margin(basePrice, cost decimal.Decimal) decimal.Decimal {
	return basePrice.Sub(cost)
}

// MarginPercent is margin / base price × 100, rounded to two places.
// ok is false when the base price is zero.
func MarginPercent(basePrice, cost decimal.Decimal) (decimal.Decimal, bool) {
	if basePrice.IsZero() {
		return decimal.Zero, false
	}
	return Margin(basePrice, cost).Div(basePrice).Mul(hundred).Round(2), true
}

// Report builds the costing row for item.
func Report(item models.MenuItem, entries []models.RecipeEntry, materials map[string]models.Material) ItemCost {
	cost, missing := CostPerServing(entries, materials)

	report := ItemCost{
		MenuItemID:       item.ID,
		Name:             item.Name,
		BasePrice:        item.BasePrice,
		CostPerServing:   cost,
		Margin:           Margin(item.BasePrice, cost),
		Ingredients:      make([]Ingredient, 0, len(entries)),
		MissingMaterials: missing,
	}
	if pct, ok := MarginPercent(item.BasePrice, cost); ok {
		report.MarginPercent = &pct
	}

	for _, e := range entries {
		m, ok := materials[e.MaterialID]
		if !ok {
			continue
		}
		report.Ingredients = append(report.Ingredients, Ingredient{
			MaterialID:   m.ID,
			Name:         m.Name,
			Unit:         m.Unit,
			QuantityUsed: e.QuantityUsed,
			UnitCost:     m.UnitCost,
			Cost:         m.UnitCost.Mul(e.QuantityUsed),
		})
	}
	return report
}

// ReportAll costs every item, grouping entries by menu item id. Items are
// returned in name order.
func ReportAll(items []models.MenuItem, entries []models.RecipeEntry, materials []models.Material) []ItemCost {
	byItem := make(map[string][]models.RecipeEntry)
	for _, e := range entries {
		byItem[e.MenuItemID] = append(byItem[e.MenuItemID], e)
	}
	index := IndexMaterials(materials)

	out := make([]ItemCost, 0, len(items))
	for _, item := range items {
		out = append(out, Report(item, byItem[item.ID], index))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IndexMaterials keys materials by id.
func IndexMaterials(materials []models.Material) map[string]models.Material {
	index := make(map[string]models.Material, len(materials))
	for _, m := range materials {
		index[m.ID] = m
	}
	return index
}

// ApplyPurchase returns the material after a purchase of quantity at price:
// stock grows by exactly quantity and the unit cost becomes price.
func ApplyPurchase(m models.Material, quantity, price decimal.Decimal) models.Material {
	m.StockQuantity = m.StockQuantity.Add(quantity)
	m.UnitCost = price
	return m
}

// TotalPaid is quantity × price per unit.
func TotalPaid(quantity, price decimal.Decimal) decimal.Decimal {
	return quantity.Mul(price)
}
