package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"cafe-pos/internal/models"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

var extraShot = models.AddOn{ID: "shot", Name: "Extra Shot", Category: "Coffee", Price: dec(15)}

func TestEffectivePrice(t *testing.T) {
	tests := []struct {
		name string
		item models.MenuItem
		want decimal.Decimal
	}{
		{"base price", models.MenuItem{BasePrice: dec(100)}, dec(100)},
		{"explicit discount", models.MenuItem{BasePrice: dec(100), IsOnDiscount: true, DiscountPrice: decPtr(80)}, dec(80)},
		{"discount price without flag is ignored", models.MenuItem{BasePrice: dec(100), DiscountPrice: decPtr(80)}, dec(100)},
		{"flag without discount price is ignored", models.MenuItem{BasePrice: dec(100), IsOnDiscount: true}, dec(100)},
		{"implicit discount", models.MenuItem{BasePrice: dec(100), EffectivePrice: decPtr(90)}, dec(90)},
		{"effective price above base is not a discount", models.MenuItem{BasePrice: dec(100), EffectivePrice: decPtr(120)}, dec(100)},
		{"explicit wins over implicit", models.MenuItem{BasePrice: dec(100), IsOnDiscount: true, DiscountPrice: decPtr(80), EffectivePrice: decPtr(70)}, dec(80)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectivePrice(&tt.item); !got.Equal(tt.want) {
				t.Errorf("EffectivePrice() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLineTotal(t *testing.T) {
	discounted := models.MenuItem{BasePrice: dec(100), IsOnDiscount: true, DiscountPrice: decPtr(80), AddOns: []models.AddOn{extraShot}}
	large := models.Variation{ID: "lg", Name: "Large", Price: dec(150)}

	tests := []struct {
		name       string
		item       models.MenuItem
		variation  *models.Variation
		selections []models.AddOnSelection
		want       decimal.Decimal
	}{
		{
			name: "plain item equals effective price",
			item: models.MenuItem{BasePrice: dec(95)},
			want: dec(95),
		},
		{
			name:       "discount plus add-on twice",
			item:       discounted,
			selections: []models.AddOnSelection{{AddOn: extraShot, Count: 2}},
			want:       dec(110),
		},
		{
			name:       "variation ignores base and discount",
			item:       discounted,
			variation:  &large,
			selections: []models.AddOnSelection{{AddOn: extraShot, Count: 1}},
			want:       dec(165),
		},
		{
			name: "free add-on adds nothing",
			item: models.MenuItem{BasePrice: dec(50)},
			selections: []models.AddOnSelection{
				{AddOn: models.AddOn{ID: "ice", Name: "Less Ice", Price: decimal.Zero}, Count: 3},
			},
			want: dec(50),
		},
		{
			name:       "non-positive counts are skipped",
			item:       models.MenuItem{BasePrice: dec(50)},
			selections: []models.AddOnSelection{{AddOn: extraShot, Count: 0}, {AddOn: extraShot, Count: -2}},
			want:       dec(50),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LineTotal(&tt.item, tt.variation, tt.selections); !got.Equal(tt.want) {
				t.Errorf("LineTotal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAddOnsTotal_OrderIndependent(t *testing.T) {
	syrup := models.AddOn{ID: "syrup", Name: "Vanilla", Price: decimal.RequireFromString("12.50")}
	a := []models.AddOnSelection{{AddOn: extraShot, Count: 2}, {AddOn: syrup, Count: 3}}
	b := []models.AddOnSelection{{AddOn: syrup, Count: 3}, {AddOn: extraShot, Count: 2}}
	want := decimal.RequireFromString("67.50")
	if got := AddOnsTotal(a); !got.Equal(want) {
		t.Fatalf("AddOnsTotal(a) = %s, want %s", got, want)
	}
	if got := AddOnsTotal(b); !got.Equal(want) {
		t.Fatalf("AddOnsTotal(b) = %s, want %s", got, want)
	}
}

func TestRequiresCustomization(t *testing.T) {
	if RequiresCustomization(&models.MenuItem{}) {
		t.Fatal("plain item should add directly")
	}
	if !RequiresCustomization(&models.MenuItem{Variations: []models.Variation{{ID: "lg"}}}) {
		t.Fatal("item with variations needs customization")
	}
	if !RequiresCustomization(&models.MenuItem{AddOns: []models.AddOn{extraShot}}) {
		t.Fatal("item with add-ons needs customization")
	}
}

func TestDiscountPercent(t *testing.T) {
	item := models.MenuItem{BasePrice: dec(120), IsOnDiscount: true, DiscountPrice: decPtr(90)}
	if got := DiscountPercent(&item); got != 25 {
		t.Fatalf("DiscountPercent() = %d, want 25", got)
	}
	if got := DiscountPercent(&models.MenuItem{BasePrice: dec(120)}); got != 0 {
		t.Fatalf("DiscountPercent() without discount = %d, want 0", got)
	}
}

func TestFormatCurrency(t *testing.T) {
	if got := FormatCurrency(decimal.RequireFromString("165"), "₱"); got != "₱165.00" {
		t.Fatalf("FormatCurrency() = %q", got)
	}
}

func TestGroupAddOns(t *testing.T) {
	item := models.MenuItem{AddOns: []models.AddOn{
		{ID: "a", Category: "Coffee"},
		{ID: "b", Category: "Sweetener"},
		{ID: "c", Category: "Coffee"},
	}}
	groups := GroupAddOns(&item)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Category != "Coffee" || len(groups[0].AddOns) != 2 {
		t.Fatalf("unexpected first group %+v", groups[0])
	}
	if groups[1].Category != "Sweetener" || groups[1].AddOns[0].ID != "b" {
		t.Fatalf("unexpected second group %+v", groups[1])
	}
}
