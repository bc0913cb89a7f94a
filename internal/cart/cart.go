// Package cart holds the line items of one browsing session.
//
// A Cart is not safe for concurrent use; the owning session serializes access.
package cart

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"cafe-pos/internal/models"
	"cafe-pos/internal/pricing"
)

var (
	ErrUnavailable      = errors.New("menu item is not available")
	ErrInvalidQuantity  = errors.New("quantity must be greater than 0")
	ErrUnknownVariation = errors.New("variation does not belong to menu item")
	ErrNeedsVariation   = errors.New("menu item requires a variation")
	ErrUnknownAddOn     = errors.New("add-on does not belong to menu item")
	ErrLineNotFound     = errors.New("cart line not found")
)

// Line is one distinct customization of a product.
type Line struct {
	ID         string                  `json:"id"`
	MenuItemID string                  `json:"menu_item_id"`
	Name       string                  `json:"name"`
	Variation  *models.Variation       `json:"variation,omitempty"`
	AddOns     []models.AddOnSelection `json:"add_ons,omitempty"`
	UnitTotal  decimal.Decimal         `json:"unit_total"`
	Quantity   int                     `json:"quantity"`
}

// Subtotal is unit total × quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitTotal.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	lines []*Line
}

func New() *Cart {
	return &Cart{}
}

// LineKey builds the composite identity of a customization: item, variation
// (or "base") and the add-on ids sorted with their counts.
func LineKey(menuItemID string, variation *models.Variation, selections []models.AddOnSelection) string {
	var b strings.Builder
	b.WriteString(menuItemID)
	b.WriteByte('|')
	if variation != nil {
		b.WriteString(variation.ID)
	} else {
		b.WriteString("base")
	}
	b.WriteByte('|')
	for i, s := range selections {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s:%d", s.AddOn.ID, s.Count)
	}
	return b.String()
}

// Add inserts a line or, when an identical customization exists, increments
// its quantity. Items with variations cannot be added without one.
func (c *Cart) Add(item *models.MenuItem, quantity int, variation *models.Variation, selections []models.AddOnSelection) (Line, error) {
	if !item.Available {
		return Line{}, ErrUnavailable
	}
	if quantity <= 0 {
		return Line{}, ErrInvalidQuantity
	}
	if variation == nil && len(item.Variations) > 0 {
		return Line{}, ErrNeedsVariation
	}
	if variation != nil {
		v, ok := item.FindVariation(variation.ID)
		if !ok {
			return Line{}, ErrUnknownVariation
		}
		variation = &v
	}
	normalized, err := normalizeSelections(item, selections)
	if err != nil {
		return Line{}, err
	}

	key := LineKey(item.ID, variation, normalized)
	if existing := c.find(key); existing != nil {
		existing.Quantity += quantity
		return *existing, nil
	}

	line := &Line{
		ID:         key,
		MenuItemID: item.ID,
		Name:       item.Name,
		Variation:  variation,
		AddOns:     normalized,
		UnitTotal:  pricing.LineTotal(item, variation, normalized),
		Quantity:   quantity,
	}
	c.lines = append(c.lines, line)
	return *line, nil
}

// UpdateQuantity sets a line's quantity; zero or less removes the line.
func (c *Cart) UpdateQuantity(lineID string, quantity int) error {
	line := c.find(lineID)
	if line == nil {
		return ErrLineNotFound
	}
	if quantity <= 0 {
		c.Remove(lineID)
		return nil
	}
	line.Quantity = quantity
	return nil
}

func (c *Cart) Remove(lineID string) {
	for i, l := range c.lines {
		if l.ID == lineID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// TotalItems is the sum of all line quantities.
func (c *Cart) TotalItems() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// TotalPrice is Σ unit total × quantity.
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, *l)
	}
	return out
}

// Snapshot converts the lines into order item snapshots.
func (c *Cart) Snapshot() []models.OrderItem {
	items := make([]models.OrderItem, 0, len(c.lines))
	for _, l := range c.lines {
		item := models.OrderItem{
			MenuItemID: l.MenuItemID,
			Name:       l.Name,
			UnitPrice:  l.UnitTotal,
			Quantity:   l.Quantity,
			Subtotal:   l.Subtotal(),
		}
		if l.Variation != nil {
			item.Variation = &models.VariationSnapshot{ID: l.Variation.ID, Name: l.Variation.Name, Price: l.Variation.Price}
		}
		for _, s := range l.AddOns {
			item.AddOns = append(item.AddOns, models.AddOnSnapshot{
				ID:       s.AddOn.ID,
				Name:     s.AddOn.Name,
				Price:    s.AddOn.Price,
				Quantity: s.Count,
			})
		}
		items = append(items, item)
	}
	return items
}

func (c *Cart) find(lineID string) *Line {
	for _, l := range c.lines {
		if l.ID == lineID {
			return l
		}
	}
	return nil
}

// normalizeSelections resolves add-ons against the item, merges repeated
// ids, drops non-positive counts and sorts by id.
func normalizeSelections(item *models.MenuItem, selections []models.AddOnSelection) ([]models.AddOnSelection, error) {
	counts := make(map[string]int)
	resolved := make(map[string]models.AddOn)
	for _, s := range selections {
		addOn, ok := item.FindAddOn(s.AddOn.ID)
		if !ok {
			return nil, ErrUnknownAddOn
		}
		if s.Count <= 0 {
			continue
		}
		counts[addOn.ID] += s.Count
		resolved[addOn.ID] = addOn
	}

	out := make([]models.AddOnSelection, 0, len(counts))
	for id, n := range counts {
		out = append(out, models.AddOnSelection{AddOn: resolved[id], Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AddOn.ID < out[j].AddOn.ID })
	return out, nil
}
