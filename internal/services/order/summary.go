package order

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"cafe-pos/internal/models"
)

// ItemSales is one row of the item sales summary.
type ItemSales struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// Summary is the sales overview for a filtered set of orders.
type Summary struct {
	TotalSales      decimal.Decimal `json:"total_sales"`
	CompletedOrders int             `json:"completed_orders"`
	AverageOrder    decimal.Decimal `json:"average_order"`
	PendingToday    int             `json:"pending_today"`
	Items           []ItemSales     `json:"items"`
}

// Summarize aggregates completed orders. Items are keyed by name and
// variation and sorted by quantity sold, highest first.
func Summarize(orders []models.Order) Summary {
	s := Summary{TotalSales: decimal.Zero, AverageOrder: decimal.Zero, Items: []ItemSales{}}

	index := make(map[string]int)
	for _, o := range orders {
		if o.Status.Normalize() != models.StatusCompleted {
			continue
		}
		s.CompletedOrders++
		s.TotalSales = s.TotalSales.Add(o.Total)

		for _, item := range o.Items {
			key, name := item.Name+"-base", item.Name
			if item.Variation != nil {
				key = item.Name + "-" + item.Variation.Name
				name = item.Name + " (" + item.Variation.Name + ")"
			}
			i, ok := index[key]
			if !ok {
				i = len(s.Items)
				index[key] = i
				s.Items = append(s.Items, ItemSales{Name: name, Total: decimal.Zero})
			}
			s.Items[i].Quantity += item.Quantity
			s.Items[i].Total = s.Items[i].Total.Add(item.Subtotal)
		}
	}

	if s.CompletedOrders > 0 {
		s.AverageOrder = s.TotalSales.Div(decimal.NewFromInt(int64(s.CompletedOrders))).Round(2)
	}
	sort.SliceStable(s.Items, func(i, j int) bool {
		return s.Items[i].Quantity > s.Items[j].Quantity
	})
	return s
}

// StartOfDay is midnight of t's day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
