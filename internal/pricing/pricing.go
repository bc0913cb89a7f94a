// Package pricing computes the price of a single customized menu line.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"cafe-pos/internal/models"
)

var hundred = decimal.NewFromInt(100)

// EffectivePrice is the price charged for the item before add-ons when no
// variation is chosen.
func EffectivePrice(item *models.MenuItem) decimal.Decimal {
	if price, ok := Discount(item); ok {
		return price
	}
	return item.BasePrice
}

// Discount returns the discounted price shown to the customer, if any.
// An explicit discount wins; otherwise an effective price below the base
// price counts as an implicit discount.
func Discount(item *models.MenuItem) (decimal.Decimal, bool) {
	if item.IsOnDiscount && item.DiscountPrice != nil {
		return *item.DiscountPrice, true
	}
	if item.EffectivePrice != nil && item.EffectivePrice.LessThan(item.BasePrice) {
		return *item.EffectivePrice, true
	}
	return decimal.Zero, false
}

// DiscountPercent is the whole-number percentage saved, 0 without a discount.
func DiscountPercent(item *models.MenuItem) int64 {
	price, ok := Discount(item)
	if !ok || item.BasePrice.IsZero() {
		return 0
	}
	return item.BasePrice.Sub(price).Div(item.BasePrice).Mul(hundred).Round(0).IntPart()
}

// LineTotal prices one unit of an item with an optional variation and a set
// of add-on selections. Variation prices are absolute, not increments.
func LineTotal(item *models.MenuItem, variation *models.Variation, selections []models.AddOnSelection) decimal.Decimal {
	total := EffectivePrice(item)
	if variation != nil {
		total = variation.Price
	}
	total = total.Add(AddOnsTotal(selections))
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// AddOnsTotal is Σ price × count over the selections.
func AddOnsTotal(selections []models.AddOnSelection) decimal.Decimal {
	sum := decimal.Zero
	for _, s := range selections {
		if s.Count <= 0 {
			continue
		}
		sum = sum.Add(s.AddOn.Price.Mul(decimal.NewFromInt(int64(s.Count))))
	}
	return sum
}

// RequiresCustomization reports whether the item must go through the
// customization step before it can be added to a cart.
func RequiresCustomization(item *models.MenuItem) bool {
	return len(item.Variations) > 0 || len(item.AddOns) > 0
}

// FormatCurrency renders an amount with two decimals.
func FormatCurrency(amount decimal.Decimal, symbol string) string {
	return fmt.Sprintf("%s%s", symbol, amount.StringFixed(2))
}

// AddOnGroup is the add-ons of one category.
type AddOnGroup struct {
	Category string         `json:"category"`
	AddOns   []models.AddOn `json:"add_ons"`
}

// GroupAddOns groups add-ons by category, categories in order of first appearance.
func GroupAddOns(item *models.MenuItem) []AddOnGroup {
	var groups []AddOnGroup
	index := make(map[string]int)
	for _, a := range item.AddOns {
		i, ok := index[a.Category]
		if !ok {
			i = len(groups)
			index[a.Category] = i
			groups = append(groups, AddOnGroup{Category: a.Category})
		}
		groups[i].AddOns = append(groups[i].AddOns, a)
	}
	return groups
}
