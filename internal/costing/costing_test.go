package costing

import (
	"testing"

	"github.com/shopspring/decimal"

	"cafe-pos/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	beans = models.Material{ID: "beans", Name: "Coffee Beans", Unit: "g", UnitCost: d("1.20"), StockQuantity: d("1000"), LowStockThreshold: d("200")}
	milk  = models.Material{ID: "milk", Name: "Fresh Milk", Unit: "ml", UnitCost: d("0.10"), StockQuantity: d("150"), LowStockThreshold: d("500")}
)

func TestCostPerServing(t *testing.T) {
	materials := IndexMaterials([]models.Material{beans, milk})

	tests := []struct {
		name        string
		entries     []models.RecipeEntry
		want        decimal.Decimal
		wantMissing int
	}{
		{"empty recipe", nil, decimal.Zero, 0},
		{
			name: "latte",
			entries: []models.RecipeEntry{
				{MaterialID: "beans", QuantityUsed: d("18")},
				{MaterialID: "milk", QuantityUsed: d("200")},
			},
			want: d("41.60"),
		},
		{
			name: "missing material contributes zero",
			entries: []models.RecipeEntry{
				{MaterialID: "beans", QuantityUsed: d("18")},
				{MaterialID: "gone", QuantityUsed: d("5")},
			},
			want:        d("21.60"),
			wantMissing: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, missing := CostPerServing(tt.entries, materials)
			if !got.Equal(tt.want) {
				t.Errorf("CostPerServing() = %s, want %s", got, tt.want)
			}
			if len(missing) != tt.wantMissing {
				t.Errorf("missing = %v, want %d entries", missing, tt.wantMissing)
			}
		})
	}
}

func TestMarginPercent(t *testing.T) {
	pct, ok := MarginPercent(d("160"), d("40"))
	if !ok || !pct.Equal(d("75")) {
		t.Fatalf("MarginPercent(160, 40) = %s, %v", pct, ok)
	}
	if _, ok := MarginPercent(decimal.Zero, d("10")); ok {
		t.Fatal("zero base price must be guarded")
	}
	if got := Margin(d("100"), d("120")); !got.Equal(d("-20")) {
		t.Fatalf("Margin() = %s, want -20", got)
	}
}

func TestReport(t *testing.T) {
	item := models.MenuItem{ID: "latte", Name: "Latte", BasePrice: d("120")}
	entries := []models.RecipeEntry{
		{MenuItemID: "latte", MaterialID: "beans", QuantityUsed: d("18")},
		{MenuItemID: "latte", MaterialID: "milk", QuantityUsed: d("200")},
		{MenuItemID: "latte", MaterialID: "cups", QuantityUsed: d("1")},
	}
	r := Report(item, entries, IndexMaterials([]models.Material{beans, milk}))

	if !r.CostPerServing.Equal(d("41.6")) || !r.Margin.Equal(d("78.4")) {
		t.Fatalf("unexpected cost/margin %s/%s", r.CostPerServing, r.Margin)
	}
	if r.MarginPercent == nil || !r.MarginPercent.Equal(d("65.33")) {
		t.Fatalf("unexpected margin percent %v", r.MarginPercent)
	}
	if len(r.Ingredients) != 2 || len(r.MissingMaterials) != 1 || r.MissingMaterials[0] != "cups" {
		t.Fatalf("unexpected breakdown %+v", r)
	}

	free := Report(models.MenuItem{ID: "water", BasePrice: decimal.Zero}, nil, nil)
	if free.MarginPercent != nil {
		t.Fatal("margin percent should be absent for zero base price")
	}
}

func TestApplyPurchase(t *testing.T) {
	got := ApplyPurchase(beans, d("500"), d("1.50"))
	if !got.StockQuantity.Equal(d("1500")) {
		t.Fatalf("stock = %s, want 1500", got.StockQuantity)
	}
	// last purchase cost, not an average
	if !got.UnitCost.Equal(d("1.50")) {
		t.Fatalf("unit cost = %s, want 1.50", got.UnitCost)
	}
	if !TotalPaid(d("500"), d("1.50")).Equal(d("750")) {
		t.Fatal("total paid should be quantity × price")
	}
}

func TestStockStatus(t *testing.T) {
	tests := []struct {
		name  string
		stock string
		want  StockLevel
	}{
		{"empty", "0", OutOfStock},
		{"at threshold", "200", LowStock},
		{"above threshold", "201", InStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := beans
			m.StockQuantity = d(tt.stock)
			if got := StockStatus(m); got != tt.want {
				t.Errorf("StockStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAdjustStock_ClampsAtZero(t *testing.T) {
	if got := AdjustStock(milk, d("-400")); !got.StockQuantity.IsZero() {
		t.Fatalf("stock = %s, want 0", got.StockQuantity)
	}
	if got := AdjustStock(milk, d("50")); !got.StockQuantity.Equal(d("200")) {
		t.Fatalf("stock = %s, want 200", got.StockQuantity)
	}
}

func TestSummary(t *testing.T) {
	empty := beans
	empty.ID = "empty"
	empty.StockQuantity = decimal.Zero
	s := Summary(
		[]models.Material{beans, milk, empty},
		[]models.Purchase{{TotalPaid: d("750")}, {TotalPaid: d("120.50")}},
	)
	if !s.TotalStockValue.Equal(d("1215")) {
		t.Fatalf("stock value = %s, want 1215", s.TotalStockValue)
	}
	if s.LowStockCount != 1 || s.OutOfStockCount != 1 || s.TotalMaterials != 3 {
		t.Fatalf("unexpected counts %+v", s)
	}
	if !s.TotalPaid.Equal(d("870.5")) || s.TotalPurchases != 2 {
		t.Fatalf("unexpected purchase totals %+v", s)
	}
}
